//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oshokin/ghost-host/internal/api/grpc/prop"
	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/version"
)

// Client wraps the gRPC PropService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the prop daemon.
	conn *grpc.ClientConn
	// api is the PropService client stub.
	api prop.PropServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the prop daemon.
// The transport is insecure; the control port belongs on the show network only.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent("ghost-ctl")),
	)
	if err != nil {
		return nil, fmt.Errorf("dial prop daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         prop.NewPropServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Trigger asks the daemon for a performance.
func (c *Client) Trigger(ctx context.Context, req domain.TriggerRequest) (prop.TriggerReply, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Trigger(callCtx, prop.NewTriggerRequest(req))
	if err != nil {
		return prop.TriggerReply{}, fmt.Errorf("trigger: %w", err)
	}

	return prop.ParseTriggerReply(resp), nil
}

// ForceStop ends the running performance. It reports whether anything was stopped.
func (c *Client) ForceStop(ctx context.Context) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ForceStop(callCtx, new(emptypb.Empty))
	if err != nil {
		return false, fmt.Errorf("force stop: %w", err)
	}

	return prop.ParseStopReply(resp), nil
}

// EndCooldown clears the cooldown. It reports whether one was running.
func (c *Client) EndCooldown(ctx context.Context) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.EndCooldown(callCtx, new(emptypb.Empty))
	if err != nil {
		return false, fmt.Errorf("end cooldown: %w", err)
	}

	return prop.ParseEndCooldownReply(resp), nil
}

// GetStatus retrieves the daemon status.
func (c *Client) GetStatus(ctx context.Context) (domain.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return domain.Status{}, fmt.Errorf("get status: %w", err)
	}

	return prop.ParseStatus(resp), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
