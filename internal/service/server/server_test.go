package server

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/hardware/bridge"
)

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// serialLink is an in-memory microcontroller link recording every command line.
type serialLink struct {
	// reader never yields data; closing it ends the bridge reader.
	reader *io.PipeReader
	// mu protects written and closed.
	mu sync.Mutex
	// written collects the command lines.
	written bytes.Buffer
	// closed is set by Close.
	closed bool
}

func newSerialLink() *serialLink {
	r, _ := io.Pipe()

	return &serialLink{reader: r}
}

func (l *serialLink) Read(b []byte) (int, error) {
	return l.reader.Read(b)
}

func (l *serialLink) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, io.ErrClosedPipe
	}

	return l.written.Write(b)
}

func (l *serialLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	return l.reader.Close()
}

// lines returns the command lines written so far.
func (l *serialLink) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return strings.Split(strings.TrimSuffix(l.written.String(), "\n"), "\n")
}

func (l *serialLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closed
}

// opener hands out link wrapped in a bridge.
func (l *serialLink) opener(ctx context.Context, _ string, _ int) (*bridge.Bridge, error) {
	return bridge.New(ctx, l), nil
}

func noLink(context.Context, string, int) (*bridge.Bridge, error) {
	panic("serial link opened without serial settings")
}

// benchSettings returns settings that need no speakers and bind no fixed port.
func benchSettings(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	settings := config.Default()
	settings.Control.ListenAddress = "127.0.0.1:0"
	settings.Audio.SoundDir = dir
	settings.Audio.Backend = config.AudioBackendSimulated
	settings.StateFile = filepath.Join(dir, "state.json")

	return settings
}

// TestFindOther ignores the current process and unrelated executables.
func TestFindOther(t *testing.T) {
	t.Parallel()

	processes := []ps.Process{
		fakeProcess{pid: 10, name: "ghost-host"},
		fakeProcess{pid: 11, name: "aplay"},
	}

	_, found := findOther(processes, "ghost-host", 10)
	require.False(t, found)

	processes = append(processes, fakeProcess{pid: 12, name: "ghost-host"})

	pid, found := findOther(processes, "ghost-host", 10)
	require.True(t, found)
	require.Equal(t, 12, pid)
}

// TestEnsureSingleInstance passes for a name no process uses.
func TestEnsureSingleInstance(t *testing.T) {
	t.Parallel()

	require.NoError(t, ensureSingleInstance("ghost-host-test-nonexistent"))
}

// TestApplyOverrides replaces only the provided values.
func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	settings := config.Default()
	applyOverrides(settings, &Options{ListenAddress: "127.0.0.1:6000", StateFile: "other.json"})

	require.Equal(t, "127.0.0.1:6000", settings.Control.ListenAddress)
	require.Equal(t, config.DefaultHTTPListenAddress, settings.HTTP.ListenAddress)
	require.Equal(t, "other.json", settings.StateFile)
}

// TestAssemble_Bench builds a daemon without any hardware.
func TestAssemble_Bench(t *testing.T) {
	t.Parallel()

	settings := benchSettings(t)
	settings.HTTP.Enabled = true
	settings.Idle.Enabled = true

	d, err := assemble(context.Background(), settings, noLink)
	require.NoError(t, err)
	require.Nil(t, d.bridge)
	require.Nil(t, d.watcher)
	require.NotNil(t, d.httpServer)
	require.NotNil(t, d.idle)
	require.NotNil(t, d.orchestrator)
}

// TestAssemble_BadDirection fails before anything runs.
func TestAssemble_BadDirection(t *testing.T) {
	t.Parallel()

	settings := config.Default()
	settings.Motors.Direction = "up"

	_, err := assemble(context.Background(), settings, noLink)
	require.Error(t, err)
}

// TestRun_MissingConfig reports an unreadable settings file.
func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

// TestRun_StopsMotorsBeforeClosingLink sends the final safe state over the serial link on shutdown.
func TestRun_StopsMotorsBeforeClosingLink(t *testing.T) {
	t.Parallel()

	settings := benchSettings(t)
	settings.Motors.Driver = config.MotorDriverSerial
	settings.Serial.Port = "/dev/ttyFAKE"

	link := newSerialLink()

	d, err := assemble(context.Background(), settings, link.opener)
	require.NoError(t, err)
	require.NotNil(t, d.bridge)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- d.run(ctx) }()

	require.NoError(t, d.orchestrator.LookAround(ctx, domain.DirectionRight, time.Minute))
	require.Eventually(t, func() bool {
		return slices.Contains(link.lines(), "DRIVE RIGHT")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	lines := link.lines()
	drive := slices.Index(lines, "DRIVE RIGHT")
	after := lines[drive+1:]

	require.Contains(t, after, "STOP")
	require.Contains(t, after, "MOUTH CLOSE")
	require.Equal(t, "EYES OFF", lines[len(lines)-1])
	require.True(t, link.isClosed())
}
