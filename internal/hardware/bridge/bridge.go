// Package bridge talks to the prop microcontroller over a serial line.
//
// The link is line oriented. The host writes one command per line:
//
//	MOUTH OPEN
//	MOUTH CLOSE
//	DRIVE LEFT
//	DRIVE RIGHT
//	STOP
//	EYES ON
//	EYES OFF
//
// and the controller reports sensor levels as "<channel> <level>" lines, for
// example "A 1" or "B 0". Anything else it sends is logged and ignored.
package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial.v1"
	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/logger"
)

var (
	// ErrUnknownChannel is returned for levels of channels the controller does not have.
	ErrUnknownChannel = errors.New("unknown sensor channel")
	// ErrNoReading is returned before the controller reported a channel level.
	ErrNoReading = errors.New("no sensor reading yet")
	// ErrClosed is returned for commands written after Close.
	ErrClosed = errors.New("bridge closed")
)

// Bridge is an actuator driver and a sensor level reader in one.
type Bridge struct {
	// port is the serial link.
	port io.ReadWriteCloser
	// log receives link messages.
	log *zap.SugaredLogger

	// writeMu serializes command lines and protects closed.
	writeMu sync.Mutex
	// closed is set by Close.
	closed bool

	// levelsMu protects levels.
	levelsMu sync.RWMutex
	// levels holds the last reported level per channel.
	levels map[performance.TriggerSource]bool
}

// Open opens the serial port and wraps it.
func Open(ctx context.Context, portName string, baudRate int) (*Bridge, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	logger.InfoKV(ctx, "Serial bridge connected", "port", portName, "baud_rate", baudRate)

	return New(ctx, port), nil
}

// New wraps an already open link.
func New(ctx context.Context, port io.ReadWriteCloser) *Bridge {
	return &Bridge{
		port:   port,
		log:    logger.FromContext(ctx).Named("bridge"),
		levels: make(map[performance.TriggerSource]bool, len(performance.SensorChannels())),
	}
}

// Encode returns the command line for cmd, without the line break.
func Encode(cmd performance.ActuatorCommand) (string, error) {
	switch cmd.Kind {
	case performance.CommandMouthOpen:
		return "MOUTH OPEN", nil
	case performance.CommandMouthClose:
		return "MOUTH CLOSE", nil
	case performance.CommandHeadTorsoDrive:
		return "DRIVE " + strings.ToUpper(cmd.Direction.String()), nil
	case performance.CommandHeadTorsoStop:
		return "STOP", nil
	case performance.CommandEyesOn:
		return "EYES ON", nil
	case performance.CommandEyesOff:
		return "EYES OFF", nil
	default:
		return "", fmt.Errorf("unknown actuator command %s", cmd)
	}
}

// Apply writes cmd to the controller.
func (b *Bridge) Apply(cmd performance.ActuatorCommand) error {
	line, err := Encode(cmd)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.closed {
		return ErrClosed
	}

	if _, err = io.WriteString(b.port, line+"\n"); err != nil {
		return fmt.Errorf("failed to write %q: %w", line, err)
	}

	return nil
}

// Level returns the last reported level of channel.
func (b *Bridge) Level(channel performance.TriggerSource) (bool, error) {
	if channel != performance.SourceChannelA && channel != performance.SourceChannelB {
		return false, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	b.levelsMu.RLock()
	defer b.levelsMu.RUnlock()

	level, ok := b.levels[channel]
	if !ok {
		return false, ErrNoReading
	}

	return level, nil
}

// Run reads sensor lines until ctx is done or the link fails.
func (b *Bridge) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if err := b.Close(); err != nil {
			b.log.Warnw("Failed to close serial link", "error", err)
		}
	})
	defer stop()

	scanner := bufio.NewScanner(b.port)

	for scanner.Scan() {
		b.handleLine(scanner.Text())
	}

	if ctx.Err() != nil {
		return nil
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("serial link failed: %w", err)
	}

	return io.ErrUnexpectedEOF
}

// handleLine parses one line from the controller.
func (b *Bridge) handleLine(line string) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		if len(fields) > 0 {
			b.log.Debugw("Ignoring controller line", "line", line)
		}

		return
	}

	var channel performance.TriggerSource

	switch strings.ToUpper(fields[0]) {
	case "A":
		channel = performance.SourceChannelA
	case "B":
		channel = performance.SourceChannelB
	default:
		b.log.Debugw("Ignoring controller line", "line", line)

		return
	}

	var level bool

	switch fields[1] {
	case "1":
		level = true
	case "0":
		level = false
	default:
		b.log.Debugw("Ignoring controller line", "line", line)

		return
	}

	b.levelsMu.Lock()
	b.levels[channel] = level
	b.levelsMu.Unlock()
}

// Close closes the link once; later commands fail with ErrClosed.
func (b *Bridge) Close() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	return b.port.Close()
}
