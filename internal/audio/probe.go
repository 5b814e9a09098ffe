package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit stereo.
const mp3BytesPerSample = 4

// ErrUnsupportedFormat is returned for files that are neither WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// supported reports whether name has an extension the prober understands.
func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".mp3":
		return true
	default:
		return false
	}
}

// ProbeDuration decodes enough of the file at path to know its play length.
func ProbeDuration(path string) (time.Duration, error) {
	var probe func(*os.File) (time.Duration, error)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		probe = wavDuration
	case ".mp3":
		probe = mp3Duration
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open clip: %w", err)
	}

	defer f.Close()

	duration, err := probe(f)
	if err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", filepath.Base(path), err)
	}

	if duration <= 0 {
		return 0, fmt.Errorf("clip %s has no audio frames", filepath.Base(path))
	}

	return duration, nil
}

func wavDuration(f *os.File) (time.Duration, error) {
	return wav.NewDecoder(f).Duration()
}

func mp3Duration(f *os.File) (time.Duration, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}

	rate := decoder.SampleRate()
	if rate <= 0 {
		return 0, errors.New("invalid sample rate")
	}

	samples := decoder.Length() / mp3BytesPerSample

	return time.Duration(samples) * time.Second / time.Duration(rate), nil
}
