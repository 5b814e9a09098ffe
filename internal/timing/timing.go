package timing

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/oshokin/ghost-host/internal/domain/performance"
)

// TimestampsSuffix is appended to the clip base name to find its timing file.
const TimestampsSuffix = "_timestamps.json"

// wordItemType is the only item type that drives the mouth; transcription
// results also list spacing and audio events.
const wordItemType = "word"

var (
	// ErrNoTimings is returned when a clip has no timing file.
	ErrNoTimings = errors.New("word timing file not found")
	// ErrMalformed is returned when a timing file cannot be decoded.
	ErrMalformed = errors.New("malformed word timing file")
	// ErrInvalidClip is returned for clip names leaving the sound directory.
	ErrInvalidClip = errors.New("invalid clip name")
)

// Source provides word intervals for a clip.
type Source interface {
	LoadIntervals(clip string) ([]performance.WordInterval, error)
}

// FileSource reads timing files from the sound directory.
type FileSource struct {
	// dir is the sound directory the clips live in.
	dir string
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// TimestampsName returns the timing file name that belongs to clip.
func TimestampsName(clip string) string {
	return strings.TrimSuffix(clip, filepath.Ext(clip)) + TimestampsSuffix
}

// LoadIntervals reads, decodes and normalizes the timing file of clip.
func (s *FileSource) LoadIntervals(clip string) ([]performance.WordInterval, error) {
	if !filepath.IsLocal(clip) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClip, clip)
	}

	path := filepath.Join(s.dir, TimestampsName(clip))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoTimings, path)
		}

		return nil, fmt.Errorf("failed to read word timings: %w", err)
	}

	intervals, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return intervals, nil
}

// wordItem is one entry of either layout.
type wordItem struct {
	Type  string  `json:"type"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// transcript is the object layout.
type transcript struct {
	Words []wordItem `json:"words"`
}

// Parse decodes a timing document and returns normalized intervals.
func Parse(data []byte) ([]performance.WordInterval, error) {
	data = bytes.TrimSpace(data)

	var items []wordItem

	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	case data[0] == '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	default:
		var doc transcript
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		items = doc.Words
	}

	intervals := make([]performance.WordInterval, 0, len(items))

	for _, item := range items {
		if item.Type != "" && item.Type != wordItemType {
			continue
		}

		if !validSeconds(item.Start) || !validSeconds(item.End) || item.End < item.Start {
			continue
		}

		intervals = append(intervals, performance.WordInterval{
			Start: seconds(item.Start),
			End:   seconds(item.End),
		})
	}

	return Normalize(intervals), nil
}

// Normalize sorts intervals by start and merges overlapping ones.
// Intervals with negative offsets or an end before the start are dropped.
func Normalize(in []performance.WordInterval) []performance.WordInterval {
	out := slices.DeleteFunc(slices.Clone(in), func(w performance.WordInterval) bool {
		return w.Start < 0 || w.End < w.Start
	})

	slices.SortStableFunc(out, func(a, b performance.WordInterval) int {
		return cmp.Compare(a.Start, b.Start)
	})

	merged := out[:0]

	for _, w := range out {
		last := len(merged) - 1
		if last >= 0 && w.Start < merged[last].End {
			merged[last].End = max(merged[last].End, w.End)

			continue
		}

		merged = append(merged, w)
	}

	return merged
}

func validSeconds(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}
