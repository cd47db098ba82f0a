package control

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultClientTimeout bounds one client round trip.
const DefaultClientTimeout = 30 * time.Second

// Client sends commands to a control server.
type Client struct {
	network string
	address string

	// Timeout bounds each round trip when ctx has no earlier deadline.
	Timeout time.Duration
}

// NewClient creates a client for a unix:// or tcp:// URL.
func NewClient(serverURL string) (*Client, error) {
	network, address, err := ParseListenURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &Client{network: network, address: address, Timeout: DefaultClientTimeout}, nil
}

// Run sends a script. A rejected script returns a *ReplyError carrying the
// server's message.
func (c *Client) Run(ctx context.Context, script []byte) error {
	return c.do(ctx, Command{Name: CommandRun, Script: script})
}

// Stop clears the loaded routine and cancels its work.
func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, Command{Name: CommandStop})
}

func (c *Client) do(ctx context.Context, cmd Command) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, c.network, c.address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("setting deadline: %w", err)
		}
	}
	if err := WriteCommand(conn, cmd); err != nil {
		return fmt.Errorf("sending %s: %w", cmd.Name, err)
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return fmt.Errorf("reading reply: %w", err)
	}
	return ParseReply(reply)
}
