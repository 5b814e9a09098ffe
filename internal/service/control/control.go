// Package control implements the ghost-ctl actions against a running daemon.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/logger"
	"github.com/oshokin/ghost-host/internal/service/common"
)

// Action selects what ghost-ctl asks the daemon to do.
type Action int

// Supported actions.
const (
	ActionTrigger Action = iota + 1
	ActionStop
	ActionEndCooldown
	ActionStatus
)

// Options configures one ghost-ctl call.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the daemon address from config when specified.
	ServerAddress string
	// Action is the operation to perform.
	Action Action
	// Source names the trigger source for ActionTrigger; empty means manual.
	Source string
	// Clip overrides the default clip for ActionTrigger.
	Clip string
	// Out receives the human-readable result; nil means stdout.
	Out io.Writer
}

var (
	// ErrRejected is returned when the daemon declined a trigger.
	ErrRejected = errors.New("trigger rejected")
	// errUnknownAction is returned for an unsupported action.
	errUnknownAction = errors.New("unknown action")
)

// Run connects to the daemon, performs the action and prints the answer.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "ghost-ctl")

	cfg, err := loadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.Control.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Control.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	switch opts.Action {
	case ActionTrigger:
		return trigger(ctx, client, opts, out)
	case ActionStop:
		stopped, stopErr := client.ForceStop(ctx)
		if stopErr != nil {
			return stopErr
		}

		_, err = fmt.Fprintln(out, pick(stopped, "stopped", "nothing to stop"))
	case ActionEndCooldown:
		cleared, clearErr := client.EndCooldown(ctx)
		if clearErr != nil {
			return clearErr
		}

		_, err = fmt.Fprintln(out, pick(cleared, "cooldown cleared", "no cooldown running"))
	case ActionStatus:
		status, statusErr := client.GetStatus(ctx)
		if statusErr != nil {
			return statusErr
		}

		_, err = io.WriteString(out, FormatStatus(status))
	default:
		return fmt.Errorf("%w: %d", errUnknownAction, opts.Action)
	}

	return err
}

// loadSettings reads settings, falling back to defaults when the default
// settings file is absent.
func loadSettings(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}

	if (path == "" || path == config.DefaultConfigFilename) && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}

	return nil, err
}

func trigger(ctx context.Context, client *common.Client, opts *Options, out io.Writer) error {
	source, err := domain.ParseTriggerSource(opts.Source)
	if err != nil {
		return err
	}

	req := domain.TriggerRequest{
		Source: source,
		Clip:   opts.Clip,
	}

	if actor, actorErr := common.DetectActor(); actorErr == nil {
		req.Actor = actor
	} else {
		logger.WarnKV(ctx, "Unable to detect actor", "error", actorErr)
	}

	reply, err := client.Trigger(ctx, req)
	if err != nil {
		return err
	}

	if !reply.Accepted {
		return fmt.Errorf("%w: %s", ErrRejected, reply.Reason)
	}

	_, err = fmt.Fprintf(out, "performance started: %s\n", reply.SessionID)

	return err
}

// FormatStatus renders a status snapshot for the terminal.
func FormatStatus(status domain.Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "state:       %s\n", status.State)

	if status.CooldownActive {
		fmt.Fprintf(&b, "cooldown:    %s left\n", status.CooldownRemaining.Round(time.Second))
	} else {
		b.WriteString("cooldown:    off\n")
	}

	if s := status.Session; s != nil {
		fmt.Fprintf(&b, "session:     %s (%s, %s, %s)\n", s.ID, s.Source, s.Clip, s.AudioDuration)
	}

	fmt.Fprintf(&b, "mouth:       %s\n", pick(status.Actuators.MouthOpen, "open", "closed"))
	fmt.Fprintf(&b, "head/torso:  %s\n",
		pick(status.Actuators.HeadTorsoMoving, "moving "+status.Actuators.Direction.String(), "stopped"))
	fmt.Fprintf(&b, "eyes:        %s\n", pick(status.Actuators.EyesOn, "on", "off"))

	stats := status.Stats
	fmt.Fprintf(&b, "performed:   %d (rejected %d)\n", stats.Performances, stats.Rejected)

	if !stats.LastStartedAt.IsZero() {
		fmt.Fprintf(&b, "last:        %s from %s at %s, %s\n",
			stats.LastClip, stats.LastSource, stats.LastStartedAt.Local().Format(time.DateTime), stats.LastOutcome)
	}

	return b.String()
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}

	return no
}
