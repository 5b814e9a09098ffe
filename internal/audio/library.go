package audio

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/logger"
)

var (
	// ErrInvalidClip is returned for names that would leave the sound directory.
	ErrInvalidClip = errors.New("invalid clip name")
	// ErrClipNotFound is returned when the clip file does not exist.
	ErrClipNotFound = errors.New("clip not found")
)

// Clip describes one playable file.
type Clip struct {
	// Name is the file name relative to the sound directory.
	Name string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the last modification time.
	ModTime time.Time
	// Duration is the play length.
	Duration time.Duration
}

// Library resolves and describes clips of one sound directory.
type Library struct {
	// dir is the sound directory.
	dir string
	// cache keeps probed clips by name.
	cache *lru.Cache[string, Clip]
	// log receives cache and watcher messages.
	log *zap.SugaredLogger
}

// NewLibrary creates a Library over dir caching up to cacheSize clips.
func NewLibrary(ctx context.Context, dir string, cacheSize int) (*Library, error) {
	cache, err := lru.New[string, Clip](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create clip cache: %w", err)
	}

	return &Library{
		dir:   dir,
		cache: cache,
		log:   logger.FromContext(ctx).Named("library"),
	}, nil
}

// Dir returns the sound directory.
func (l *Library) Dir() string {
	return l.dir
}

// Resolve returns the absolute path of an existing clip.
func (l *Library) Resolve(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidClip, name)
	}

	path := filepath.Join(l.dir, name)

	info, err := os.Stat(path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s", ErrClipNotFound, name)
	case err != nil:
		return "", fmt.Errorf("failed to stat clip: %w", err)
	case info.IsDir():
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidClip, name)
	}

	return path, nil
}

// Info returns the cached description of a clip, probing it on a miss.
func (l *Library) Info(name string) (Clip, error) {
	if clip, ok := l.cache.Get(name); ok {
		return clip, nil
	}

	path, err := l.Resolve(name)
	if err != nil {
		return Clip{}, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to stat clip: %w", err)
	}

	duration, err := ProbeDuration(path)
	if err != nil {
		return Clip{}, err
	}

	clip := Clip{
		Name:     name,
		Size:     stat.Size(),
		ModTime:  stat.ModTime(),
		Duration: duration,
	}

	l.cache.Add(name, clip)

	return clip, nil
}

// Duration returns the play length of a clip.
func (l *Library) Duration(name string) (time.Duration, error) {
	clip, err := l.Info(name)
	if err != nil {
		return 0, err
	}

	return clip.Duration, nil
}

// List describes every supported clip of the directory, sorted by name.
// Clips that cannot be probed are skipped.
func (l *Library) List() ([]Clip, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sound directory: %w", err)
	}

	clips := make([]Clip, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !supported(entry.Name()) {
			continue
		}

		clip, err := l.Info(entry.Name())
		if err != nil {
			l.log.Warnw("Skipping unreadable clip", "clip", entry.Name(), "error", err)

			continue
		}

		clips = append(clips, clip)
	}

	slices.SortFunc(clips, func(a, b Clip) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return clips, nil
}

// Invalidate drops a clip from the cache.
func (l *Library) Invalidate(name string) {
	l.cache.Remove(name)
}

// Watch invalidates cached clips whenever their files change. It blocks until
// ctx is done.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create sound directory watcher: %w", err)
	}

	defer watcher.Close()

	if err = watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	l.log.Debugw("Watching sound directory", "dir", l.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			name := filepath.Base(event.Name)
			l.Invalidate(name)
			l.log.Debugw("Clip changed", "clip", name, "op", event.Op.String())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			l.log.Warnw("Sound directory watcher error", "error", err)
		}
	}
}
