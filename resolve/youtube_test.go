package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"3:04", 3*time.Minute + 4*time.Second},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"45", 45 * time.Second},
		{"", 0},
		{"live", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseClock(tt.input))
		})
	}
}

func TestParseProbe(t *testing.T) {
	out := "212.5\thttps://i.ytimg.com/x.jpg\thttps://www.youtube.com/watch?v=abc\tUploader\tMy Video\n"

	track, err := parseProbe(out, "https://youtu.be/abc")
	require.NoError(t, err)

	assert.Equal(t, "My Video", track.Title)
	assert.Equal(t, "Uploader", track.Artist)
	assert.Equal(t, 212500*time.Millisecond, track.Duration)
	assert.Equal(t, "https://i.ytimg.com/x.jpg", track.ArtworkURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", track.URL)
}

func TestParseProbeTitleWithSeparators(t *testing.T) {
	out := "212\thttps://i.ytimg.com/x.jpg\thttps://www.youtube.com/watch?v=AbCdEf12345\tUploader\tArtist | Song (Official Video)\tLive\n"

	track, err := parseProbe(out, "https://youtu.be/AbCdEf12345")
	require.NoError(t, err)

	assert.Equal(t, "Artist | Song (Official Video)\tLive", track.Title)
	assert.Equal(t, "Uploader", track.Artist)
	assert.Equal(t, 212*time.Second, track.Duration)
	assert.Equal(t, "https://i.ytimg.com/x.jpg", track.ArtworkURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=AbCdEf12345", track.URL)
	assert.Equal(t, "https://www.youtube.com/watch?v=AbCdEf12345", track.Source())
}

func TestParseProbeMissingFields(t *testing.T) {
	track, err := parseProbe("NA\tNA\tNA\tNA\tNA", "https://example.com/a.mp3")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/a.mp3", track.Title)
	assert.Empty(t, track.Artist)
	assert.Zero(t, track.Duration)
	assert.Equal(t, "https://example.com/a.mp3", track.URL)
}

func TestParseProbeGarbage(t *testing.T) {
	_, err := parseProbe("ERROR: unsupported", "https://example.com")
	assert.Error(t, err)
}
