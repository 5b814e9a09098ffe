package audio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Backend starts the actual playback of a resolved clip.
type Backend interface {
	Start(path string, duration time.Duration) (Playback, error)
}

// Playback is one running clip.
type Playback interface {
	// Wait blocks until the clip ended or was stopped.
	Wait() error
	// Stop ends the clip early. It is safe to call more than once.
	Stop() error
}

// CommandBackend plays clips with an external player process such as aplay.
type CommandBackend struct {
	// command is the player executable.
	command string
	// device is passed as "-D <device>" when set.
	device string
}

// NewCommandBackend creates a CommandBackend.
func NewCommandBackend(command, device string) *CommandBackend {
	return &CommandBackend{
		command: command,
		device:  device,
	}
}

// args builds the player argument list.
func (b *CommandBackend) args(path string) []string {
	args := make([]string, 0, 4)
	if b.device != "" {
		args = append(args, "-D", b.device)
	}

	return append(args, "-q", path)
}

// Start launches the player process.
func (b *CommandBackend) Start(path string, _ time.Duration) (Playback, error) {
	cmd := exec.Command(b.command, b.args(path)...) //nolint:gosec // The player comes from the local config file.

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", b.command, err)
	}

	return &processPlayback{cmd: cmd}, nil
}

// processPlayback tracks one player process.
type processPlayback struct {
	// cmd is the started player.
	cmd *exec.Cmd
	// mu protects stopped.
	mu sync.Mutex
	// stopped is set once Stop killed the process.
	stopped bool
}

// Wait waits for the player to exit. A kill caused by Stop is not an error.
func (p *processPlayback) Wait() error {
	err := p.cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	return err
}

// Stop kills the player.
func (p *processPlayback) Stop() error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	err := p.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop player: %w", err)
	}

	return nil
}

// SimulatedBackend pretends to play a clip for exactly its duration.
// It stands in for speakers on a bench and in tests.
type SimulatedBackend struct{}

// NewSimulatedBackend creates a SimulatedBackend.
func NewSimulatedBackend() *SimulatedBackend {
	return &SimulatedBackend{}
}

// Start arms a timer for the clip duration.
func (b *SimulatedBackend) Start(_ string, duration time.Duration) (Playback, error) {
	p := &simulatedPlayback{done: make(chan struct{})}
	p.timer = time.AfterFunc(duration, p.finish)

	return p, nil
}

// simulatedPlayback ends when its timer fires or on Stop.
type simulatedPlayback struct {
	// timer fires at the end of the clip.
	timer *time.Timer
	// done is closed when playback ends.
	done chan struct{}
	// once guards done.
	once sync.Once
}

func (p *simulatedPlayback) finish() {
	p.once.Do(func() { close(p.done) })
}

// Wait blocks until the clip ended.
func (p *simulatedPlayback) Wait() error {
	<-p.done

	return nil
}

// Stop ends the clip now.
func (p *simulatedPlayback) Stop() error {
	p.timer.Stop()
	p.finish()

	return nil
}
