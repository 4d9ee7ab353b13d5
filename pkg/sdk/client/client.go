// Package client is the crushsimd SDK: a JSON-frame client for the
// transport contract in internal/transport (§6). Unlike the teacher's
// gRPC control plane, the simulator's wire format is the spec's own
// newline-delimited JSON frames over a Unix socket (or an SSH-tunneled
// stdio pipe, see ssh.go) — there is no protobuf schema to generate
// against, so this client builds/decodes internal/transport's frame
// types directly instead of a generated stub.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"crushsim/internal/transport"
	"crushsim/pkg/sdk/defaults"
)

const envSocket = "CRUSHSIMD_SOCKET"

// DefaultSocketPath returns the platform-default crushsimd socket,
// overridable via CRUSHSIMD_SOCKET.
func DefaultSocketPath() string {
	if fromEnv := strings.TrimSpace(os.Getenv(envSocket)); fromEnv != "" {
		return fromEnv
	}
	return defaults.InstanceSocketPath("", "")
}

// API is the set of §6 inbound commands a caller can issue against a
// running simulator.
type API interface {
	Rule(ctx context.Context, text string) (transport.HierarchySuccess, error)
	AdjustRule(ctx context.Context, text string) (transport.AdjustHierarchySuccess, error)
	Step(ctx context.Context) (transport.EventsFrame, error)
	Insert(ctx context.Context, id int64) (transport.EventsFrame, error)
	Mode(ctx context.Context, newMode string) error
}

// Client is a connection to one crushsimd instance, exchanging one
// newline-delimited JSON frame per request/response.
type Client struct {
	conn net.Conn
	dec  *json.Decoder

	mu sync.Mutex
}

// NewUnix dials a crushsimd Unix socket directly.
func NewUnix(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial unix socket: %w", err)
	}
	return newClient(conn), nil
}

// NewWithDialer builds a Client over any transport a dialer can produce —
// used by NewSSH to tunnel the same JSON protocol through an SSH session.
func NewWithDialer(dialer func(ctx context.Context, addr string) (net.Conn, error)) (*Client, error) {
	conn, err := dialer(context.Background(), "crushsimd")
	if err != nil {
		return nil, fmt.Errorf("dial crushsimd: %w", err)
	}
	return newClient(conn), nil
}

func newClient(conn net.Conn) *Client {
	return &Client{conn: conn, dec: json.NewDecoder(bufio.NewReader(conn))}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

var (
	// ErrParseFailed wraps a hierarchy_fail response to a rule/adjust_rule command.
	ErrParseFailed = errors.New("crushsim: rule text failed to parse")
)

type frameTag struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// call writes one Inbound frame and decodes the single response frame
// that follows, applying ctx's deadline (if any) to the underlying conn.
func (c *Client) call(ctx context.Context, in transport.Inbound) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode inbound frame: %w", err)
	}
	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return nil, fmt.Errorf("write inbound frame: %w", err)
	}

	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response frame: %w", err)
	}
	return raw, nil
}

func (c *Client) Rule(ctx context.Context, text string) (transport.HierarchySuccess, error) {
	raw, err := c.call(ctx, transport.Inbound{Type: "rule", Message: text})
	if err != nil {
		return transport.HierarchySuccess{}, err
	}
	return decodeHierarchyResult[transport.HierarchySuccess](raw)
}

func (c *Client) AdjustRule(ctx context.Context, text string) (transport.AdjustHierarchySuccess, error) {
	raw, err := c.call(ctx, transport.Inbound{Type: "adjust_rule", Message: text})
	if err != nil {
		return transport.AdjustHierarchySuccess{}, err
	}
	return decodeHierarchyResult[transport.AdjustHierarchySuccess](raw)
}

func (c *Client) Step(ctx context.Context) (transport.EventsFrame, error) {
	raw, err := c.call(ctx, transport.Inbound{Type: "step"})
	if err != nil {
		return transport.EventsFrame{}, err
	}
	var out transport.EventsFrame
	if err := json.Unmarshal(raw, &out); err != nil {
		return transport.EventsFrame{}, fmt.Errorf("decode events frame: %w", err)
	}
	return out, nil
}

func (c *Client) Insert(ctx context.Context, id int64) (transport.EventsFrame, error) {
	raw, err := c.call(ctx, transport.Inbound{Type: "insert", ID: id})
	if err != nil {
		return transport.EventsFrame{}, err
	}
	var out transport.EventsFrame
	if err := json.Unmarshal(raw, &out); err != nil {
		return transport.EventsFrame{}, fmt.Errorf("decode events frame: %w", err)
	}
	return out, nil
}

func (c *Client) Mode(ctx context.Context, newMode string) error {
	_, err := c.call(ctx, transport.Inbound{Type: "mode", NewMode: newMode})
	return err
}

// decodeHierarchyResult decodes raw into T (HierarchySuccess or
// AdjustHierarchySuccess) unless raw is actually a hierarchy_fail frame,
// in which case it returns ErrParseFailed wrapping the server's message.
func decodeHierarchyResult[T any](raw json.RawMessage) (T, error) {
	var zero T
	var tag frameTag
	if err := json.Unmarshal(raw, &tag); err == nil && tag.Type == "hierarchy_fail" {
		return zero, fmt.Errorf("%w: %s", ErrParseFailed, tag.Data)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decode hierarchy frame: %w", err)
	}
	return out, nil
}
