package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/logger"
)

// ErrAlreadyPlaying is returned by Play while another clip is playing.
var ErrAlreadyPlaying = errors.New("a clip is already playing")

// Transport is what a performance needs from audio.
type Transport interface {
	// Duration returns the play length of clip.
	Duration(clip string) (time.Duration, error)
	// Play starts clip for duration, as returned by Duration, and returns
	// immediately. onComplete fires exactly once per successful Play, on a
	// goroutine of its own, when playback ends for any reason; err is the
	// player failure, nil for a clean end or a Stop.
	Play(clip string, duration time.Duration, onComplete func(err error)) error
	// Stop ends the current playback, if any.
	Stop() error
}

// Controller implements Transport over a Library and a Backend.
type Controller struct {
	// library resolves clips.
	library *Library
	// backend performs playback.
	backend Backend
	// log receives playback messages.
	log *zap.SugaredLogger

	// mu protects current.
	mu sync.Mutex
	// current is the running playback, nil when silent.
	current Playback
}

// NewController creates a Controller.
func NewController(ctx context.Context, library *Library, backend Backend) *Controller {
	return &Controller{
		library: library,
		backend: backend,
		log:     logger.FromContext(ctx).Named("audio"),
	}
}

// Duration returns the play length of clip.
func (c *Controller) Duration(clip string) (time.Duration, error) {
	return c.library.Duration(clip)
}

// Play starts clip. The backend is armed with the caller's duration so audio
// and actuators share one value.
func (c *Controller) Play(clip string, duration time.Duration, onComplete func(err error)) error {
	path, err := c.library.Resolve(clip)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return ErrAlreadyPlaying
	}

	playback, err := c.backend.Start(path, duration)
	if err != nil {
		return fmt.Errorf("failed to play %s: %w", clip, err)
	}

	c.current = playback

	c.log.Infow("Playing audio", "clip", clip, "duration", duration.String())

	go c.wait(clip, playback, onComplete)

	return nil
}

// wait reports the end of playback.
func (c *Controller) wait(clip string, playback Playback, onComplete func(err error)) {
	err := playback.Wait()
	if err != nil {
		err = fmt.Errorf("playback of %s failed: %w", clip, err)
		c.log.Errorw("Audio playback failed", "clip", clip, "error", err)
	} else {
		c.log.Debugw("Audio playback ended", "clip", clip)
	}

	c.mu.Lock()
	if c.current == playback {
		c.current = nil
	}
	c.mu.Unlock()

	if onComplete != nil {
		onComplete(err)
	}
}

// Stop ends the current playback.
func (c *Controller) Stop() error {
	c.mu.Lock()
	playback := c.current
	c.current = nil
	c.mu.Unlock()

	if playback == nil {
		return nil
	}

	c.log.Info("Audio stopped")

	return playback.Stop()
}

// Playing reports whether a clip is playing.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current != nil
}
