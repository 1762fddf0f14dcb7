package resolve

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"

	"jukebox/audio"
)

const watchURL = "https://www.youtube.com/watch?v="

// YouTubeSearch picks the first YouTube search result.
type YouTubeSearch struct{}

var _ Searcher = YouTubeSearch{}

func (YouTubeSearch) Search(ctx context.Context, query string) (*audio.Track, error) {
	res, err := ytsearch.NewClient(nil).Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		return &audio.Track{
			Title:    r.Title,
			Artist:   r.Channel,
			Duration: parseClock(r.Duration),
			URL:      watchURL + r.VideoID,
		}, nil
	}
	return nil, ErrNoResults
}

// YTDLP reads link metadata by shelling out to yt-dlp.
type YTDLP struct{}

var _ Prober = YTDLP{}

// probeFormat is tab separated with the title last, so a title keeps any
// separator it contains.
const probeFormat = "%(duration)s\t%(thumbnail)s\t%(webpage_url)s\t%(uploader)s\t%(title)s"

func (YTDLP) Probe(ctx context.Context, link string) (*audio.Track, error) {
	res, err := ytdlp.New().
		Quiet().
		NoWarnings().
		NoPlaylist().
		Print(probeFormat).
		Run(ctx, link)
	if err != nil {
		return nil, err
	}
	return parseProbe(res.Stdout, link)
}

func parseProbe(out, link string) (*audio.Track, error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	parts := strings.SplitN(line, "\t", 5)
	if len(parts) != 5 {
		return nil, fmt.Errorf("unexpected yt-dlp output %q", line)
	}

	t := &audio.Track{
		Title:      parts[4],
		Artist:     na(parts[3]),
		ArtworkURL: na(parts[1]),
		URL:        link,
	}
	if secs, err := strconv.ParseFloat(parts[0], 64); err == nil {
		t.Duration = time.Duration(secs * float64(time.Second))
	}
	if page := na(parts[2]); page != "" {
		t.URL = page
	}
	if t.Title == "" || t.Title == "NA" {
		t.Title = link
	}
	return t, nil
}

// na blanks yt-dlp's placeholder for missing fields.
func na(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}

// parseClock parses "m:ss" or "h:mm:ss" as shown in search results.
func parseClock(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var total int
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
