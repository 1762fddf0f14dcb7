package audio

import "errors"

var (
	ErrEmptyQuery       = errors.New("empty query")
	ErrNoVoiceChannel   = errors.New("requester is not in a voice channel")
	ErrResolutionFailed = errors.New("track resolution failed")
	ErrNoNextTrack      = errors.New("no next track in queue")
	ErrNotPlaying       = errors.New("nothing is playing")
	ErrNotPaused        = errors.New("playback is not paused")
	ErrNotConnected     = errors.New("not connected to any voice channel")
	ErrConnectionLost   = errors.New("voice connection lost")
)

// UserMessage maps an intent error to the text shown in the channel.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuery):
		return "🚫 Please provide a song name or URL!"
	case errors.Is(err, ErrNoVoiceChannel):
		return "🚫 You need to be in a voice channel to play music!"
	case errors.Is(err, ErrResolutionFailed):
		return "❌ Could not find anything playable for that query."
	case errors.Is(err, ErrNoNextTrack):
		return "No more **songs** in the **queue** to skip to."
	case errors.Is(err, ErrNotPlaying):
		return "⏸️ Nothing is playing right now."
	case errors.Is(err, ErrNotPaused):
		return "▶️ Playback is not paused."
	case errors.Is(err, ErrNotConnected):
		return "🚫 Not connected to any voice channel."
	case errors.Is(err, ErrConnectionLost):
		return "❌ Lost the voice connection, playback stopped."
	default:
		return "❌ Something went wrong, please try again."
	}
}
