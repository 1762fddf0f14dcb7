package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"layeh.com/gopus"
)

const (
	CHANNELS   = 2
	FRAME_RATE = 48000
	FRAME_SIZE = 960
	MAX_BYTES  = (FRAME_SIZE * 2) * 2
)

// Connection renders tracks onto a discordgo voice connection through a
// yt-dlp | ffmpeg pipeline and an Opus encoder. One track renders at a time.
type Connection struct {
	voiceConnection *discordgo.VoiceConnection
	logger          *zap.Logger

	lock    sync.Mutex
	current *stream
	paused  atomic.Bool
}

type stream struct {
	stopOnce  sync.Once
	stopCh    chan struct{}
	cancelled atomic.Bool
	ytdlpCmd  *exec.Cmd
	ffmpeg    *exec.Cmd
}

// cut stops the stream on behalf of a caller; such streams never report.
func (st *stream) cut() {
	st.cancelled.Store(true)
	st.stop()
}

func (st *stream) stoppedByCaller() bool {
	return st.cancelled.Load()
}

func (st *stream) stop() {
	st.stopOnce.Do(func() {
		close(st.stopCh)
		if st.ffmpeg.Process != nil {
			_ = st.ffmpeg.Process.Kill()
		}
		if st.ytdlpCmd.Process != nil {
			_ = st.ytdlpCmd.Process.Kill()
		}
	})
}

func (st *stream) stopped() bool {
	select {
	case <-st.stopCh:
		return true
	default:
		return false
	}
}

func NewConnection(voiceConnection *discordgo.VoiceConnection, logger *zap.Logger) *Connection {
	return &Connection{
		voiceConnection: voiceConnection,
		logger:          logger,
	}
}

// Play cuts whatever is rendering and starts source. done runs on the
// streaming goroutine when the track ends by itself; a track cut by Play or
// Stop never reports.
func (connection *Connection) Play(source string, done func(error)) error {
	connection.Stop()

	ytdlp := exec.Command("yt-dlp", "-f", "bestaudio", "--no-playlist", "--quiet", "-o", "-", source)
	ffmpeg := exec.Command("ffmpeg",
		"-re",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(FRAME_RATE),
		"-ac", strconv.Itoa(CHANNELS),
		"-loglevel", "error",
		"pipe:1",
	)
	stderr := zap.NewStdLog(connection.logger.Named("ffmpeg")).Writer()
	ytdlp.Stderr = stderr
	ffmpeg.Stderr = stderr

	ytdlpOut, err := ytdlp.StdoutPipe()
	if err != nil {
		return fmt.Errorf("yt-dlp pipe: %w", err)
	}
	ffmpeg.Stdin = ytdlpOut

	out, err := ffmpeg.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg pipe: %w", err)
	}

	if err := ytdlp.Start(); err != nil {
		return fmt.Errorf("yt-dlp start: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		_ = ytdlp.Process.Kill()
		_ = ytdlp.Wait()
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	st := &stream{stopCh: make(chan struct{}), ytdlpCmd: ytdlp, ffmpeg: ffmpeg}
	connection.lock.Lock()
	connection.current = st
	connection.lock.Unlock()

	go func() {
		err := connection.run(st, bufio.NewReaderSize(out, 16384))
		st.stop()
		_ = ffmpeg.Wait()
		_ = ytdlp.Wait()

		connection.lock.Lock()
		if connection.current == st {
			connection.current = nil
		}
		connection.lock.Unlock()

		if st.stoppedByCaller() {
			return
		}
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// Stop cuts the rendering track, if any.
func (connection *Connection) Stop() {
	connection.lock.Lock()
	st := connection.current
	connection.current = nil
	connection.lock.Unlock()

	if st != nil {
		st.cut()
	}
}

func (connection *Connection) Pause() {
	connection.paused.Store(true)
}

func (connection *Connection) Resume() {
	connection.paused.Store(false)
}

func (connection *Connection) Disconnect() error {
	connection.Stop()
	return connection.voiceConnection.Disconnect()
}

func (connection *Connection) ChannelID() string {
	return connection.voiceConnection.ChannelID
}

// run pumps PCM frames from ffmpeg into sendPCM until EOF or stop.
func (connection *Connection) run(st *stream, buffer *bufio.Reader) error {
	if err := connection.voiceConnection.Speaking(true); err != nil {
		connection.logger.Debug("Speaking(true) failed", zap.Error(err))
	}
	defer func() {
		_ = connection.voiceConnection.Speaking(false)
	}()

	send := make(chan []int16, 2)
	sendErr := make(chan error, 1)
	go func() {
		err := connection.sendPCM(st, send)
		if err != nil {
			st.stop()
		}
		sendErr <- err
	}()

	readErr := func() error {
		defer close(send)
		for {
			audioBuffer := make([]int16, FRAME_SIZE*CHANNELS)
			err := binary.Read(buffer, binary.LittleEndian, &audioBuffer)
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			if err != nil {
				if st.stopped() {
					return nil
				}
				return fmt.Errorf("read pcm: %w", err)
			}
			select {
			case send <- audioBuffer:
			case <-st.stopCh:
				return nil
			}
		}
	}()

	if err := <-sendErr; err != nil {
		return err
	}
	return readErr
}

func (connection *Connection) sendPCM(st *stream, pcm <-chan []int16) error {
	encoder, err := gopus.NewEncoder(FRAME_RATE, CHANNELS, gopus.Audio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}

	for frame := range pcm {
		for connection.paused.Load() {
			if st.stopped() {
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}

		opus, err := encoder.Encode(frame, FRAME_SIZE, MAX_BYTES)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}

		voice := connection.voiceConnection
		if !voice.Ready || voice.OpusSend == nil {
			return ErrConnectionLost
		}
		select {
		case voice.OpusSend <- opus:
		case <-st.stopCh:
			return nil
		case <-time.After(time.Second):
			return fmt.Errorf("%w: opus send timed out", ErrConnectionLost)
		}
	}
	return nil
}
