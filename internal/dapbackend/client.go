// Package dapbackend implements the debugger interfaces on top of Delve's
// Debug Adapter Protocol server.
package dapbackend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/go-dap"
)

// ErrClientClosed is returned for requests on a closed connection.
var ErrClientClosed = errors.New("dap connection closed")

// Client is one DAP connection. Requests may be issued from any goroutine;
// a reader goroutine matches responses by request_seq and hands events to
// the event callback. The callback runs on the reader goroutine and must
// not issue requests itself.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	logger *slog.Logger

	writeMu sync.Mutex
	writer  *bufio.Writer
	seq     int

	mu      sync.Mutex
	pending map[int]chan dap.ResponseMessage
	err     error

	onEvent func(dap.EventMessage)
	done    chan struct{}
}

// Dial connects to a DAP server at addr.
func Dial(ctx context.Context, addr string, onEvent func(dap.EventMessage), logger *slog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial dap server %s: %w", addr, err)
	}
	return NewClient(conn, onEvent, logger), nil
}

// NewClient starts a client on an established connection.
func NewClient(conn net.Conn, onEvent func(dap.EventMessage), logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		logger:  logger,
		pending: make(map[int]chan dap.ResponseMessage),
		onEvent: onEvent,
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		msg, err := dap.ReadProtocolMessage(c.reader)
		if err != nil {
			var fieldErr *dap.DecodeProtocolMessageFieldError
			if errors.As(err, &fieldErr) {
				// Unknown command or event; the frame itself was consumed.
				c.logger.Debug("skipping undecodable dap message", "error", err)
				continue
			}
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}

		switch m := msg.(type) {
		case dap.ResponseMessage:
			seq := m.GetResponse().RequestSeq
			c.mu.Lock()
			ch, ok := c.pending[seq]
			delete(c.pending, seq)
			c.mu.Unlock()
			if !ok {
				c.logger.Debug("dropping response without waiter", "request_seq", seq, "command", m.GetResponse().Command)
				continue
			}
			ch <- m
		case dap.EventMessage:
			if c.onEvent != nil {
				c.onEvent(m)
			}
		default:
			c.logger.Debug("ignoring dap message", "type", fmt.Sprintf("%T", msg))
		}
	}
}

// Do sends req and waits for its response. Unsuccessful responses are
// returned as errors.
func (c *Client) Do(ctx context.Context, req dap.RequestMessage) (dap.ResponseMessage, error) {
	r := req.GetRequest()
	r.Type = "request"
	ch := make(chan dap.ResponseMessage, 1)

	c.writeMu.Lock()
	c.seq++
	r.Seq = c.seq
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		c.writeMu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClientClosed, c.err)
	}
	c.pending[r.Seq] = ch
	c.mu.Unlock()
	err := dap.WriteProtocolMessage(c.writer, req)
	if err == nil {
		err = c.writer.Flush()
	}
	c.writeMu.Unlock()

	if err != nil {
		c.forget(r.Seq)
		return nil, fmt.Errorf("send %s: %w", r.Command, err)
	}

	select {
	case resp := <-ch:
		return resp, responseError(resp)
	case <-ctx.Done():
		c.forget(r.Seq)
		return nil, fmt.Errorf("%s: %w", r.Command, ctx.Err())
	case <-c.done:
		select {
		case resp := <-ch:
			return resp, responseError(resp)
		default:
		}
		return nil, fmt.Errorf("%s: %w", r.Command, ErrClientClosed)
	}
}

func (c *Client) forget(seq int) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

// Close closes the connection and waits for the reader to exit.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func responseError(resp dap.ResponseMessage) error {
	r := resp.GetResponse()
	if r.Success {
		return nil
	}
	if e, ok := resp.(*dap.ErrorResponse); ok && e.Body.Error != nil && e.Body.Error.Format != "" {
		return errors.New(e.Body.Error.Format)
	}
	if r.Message != "" {
		return fmt.Errorf("%s failed: %s", r.Command, r.Message)
	}
	return fmt.Errorf("%s failed", r.Command)
}

// call is Do with the response asserted to its concrete type.
func call[R dap.ResponseMessage](ctx context.Context, c *Client, req dap.RequestMessage) (R, error) {
	var zero R
	resp, err := c.Do(ctx, req)
	if err != nil {
		return zero, err
	}
	typed, ok := resp.(R)
	if !ok {
		return zero, fmt.Errorf("unexpected %T in reply to %s", resp, req.GetRequest().Command)
	}
	return typed, nil
}

func newRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Type: "request"},
		Command:         command,
	}
}
