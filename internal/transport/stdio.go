// Package transport implements the stdio JSON-RPC transport: one
// newline-delimited codec per child process, correlating requests and
// responses by a gateway-assigned monotone id.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
	"github.com/stacklok/mcp-vgateway/pkg/jsonrpc"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

// ProtocolVersion is the MCP protocol version advertised on handshake.
const ProtocolVersion = "2024-11-05"

// DefaultCallTimeout bounds a forwarded call unless the caller overrides it.
const DefaultCallTimeout = 15 * time.Second

// ClientInfo identifies the gateway to the handshaking child. It is fixed
// for the process lifetime so children see a stable client identity.
var ClientInfo = map[string]string{
	"name":    "mcp-vgateway",
	"version": "1.0",
}

type pendingCall struct {
	sink     chan *jsonrpc.Response
	once     sync.Once
	dropped  atomic.Bool
}

func (p *pendingCall) complete(resp *jsonrpc.Response) {
	p.once.Do(func() {
		if p.dropped.Load() {
			return
		}
		p.sink <- resp
	})
}

// Conn is a single child process's stdio JSON-RPC conversation. One Conn is
// owned exclusively by one ServerInstance; its methods are safe for
// concurrent use by multiple callers, but writes to stdin are totally
// ordered through writeMu so two frames can never interleave.
type Conn struct {
	label  string // serverId/instanceId, used only for log lines
	stdin  io.WriteCloser
	stderr io.Reader

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]*pendingCall
	closed  bool
}

// NewConn wraps a child's stdin/stdout/stderr pipes and starts the reader
// and stderr-scanning goroutines. Close must be called to stop them.
func NewConn(label string, stdin io.WriteCloser, stdout, stderr io.Reader) *Conn {
	c := &Conn{
		label:   label,
		stdin:   stdin,
		stderr:  stderr,
		pending: make(map[int64]*pendingCall),
	}
	go c.readLoop(stdout)
	go c.scanStderr(stderr)
	return c
}

// readLoop demultiplexes stdout frames by id.
func (c *Conn) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := sanitizeJSONLine(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp jsonrpc.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			// Not a JSON-RPC frame: children may print startup banners on
			// stdout before they start speaking MCP. Log and move on.
			logger.Debugf("[%s] non-JSON-RPC stdout line ignored: %s", c.label, string(line))
			continue
		}
		if len(resp.ID) == 0 {
			continue
		}

		id, ok := decodeID(resp.ID)
		if !ok {
			continue
		}

		c.mu.Lock()
		call, found := c.pending[id]
		if found {
			delete(c.pending, id)
		}
		c.mu.Unlock()

		if found {
			call.complete(&resp)
		}
	}
}

// scanStderr logs child stderr verbatim and flags environment-variable
// failures for diagnostics.
func (c *Conn) scanStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		logger.Warnf("[%s] stderr: %s", c.label, line)
		if looksLikeEnvFailure(line) {
			logger.Errorf("[%s] possible missing environment variable: %s", c.label, line)
		}
	}
}

func looksLikeEnvFailure(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "environment variable") ||
		strings.Contains(lower, "env var") ||
		(strings.Contains(lower, "undefined") && strings.Contains(lower, "env"))
}

// Send assigns a monotone id, writes the request frame, and waits for the
// correlated response or the deadline.
func (c *Conn) Send(ctx context.Context, method string, params json.RawMessage, timeout time.Duration) (*jsonrpc.Response, error) {
	id := c.nextID.Add(1)
	idRaw, _ := json.Marshal(id)

	call := &pendingCall{sink: make(chan *jsonrpc.Response, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, gwerrors.NewTransportChildExitedError("child process is no longer running", nil)
	}
	c.pending[id] = call
	c.mu.Unlock()

	req := jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: idRaw, Method: method, Params: params}
	frame, err := json.Marshal(req)
	if err != nil {
		c.dropPending(id)
		return nil, gwerrors.NewInternalError("failed to encode request", err)
	}
	if bytesContainsNewline(frame) {
		c.dropPending(id)
		return nil, gwerrors.NewInternalError("encoded JSON-RPC request unexpectedly contains a newline", nil)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// The write runs under the same deadline: a child that stops reading
	// stdin must not block the caller past its timeout.
	writeErr := make(chan error, 1)
	go func() { writeErr <- c.writeFrame(frame) }()
	select {
	case err := <-writeErr:
		if err != nil {
			c.dropPending(id)
			return nil, gwerrors.NewTransportChildExitedError("failed writing to child stdin", err)
		}
	case <-timer.C:
		c.dropPending(id)
		return nil, gwerrors.NewTransportTimeoutError(fmt.Sprintf("timed out writing %s request", method), nil)
	case <-ctx.Done():
		c.dropPending(id)
		return nil, gwerrors.NewTransportTimeoutError("caller cancelled", ctx.Err())
	}

	select {
	case resp := <-call.sink:
		if len(resp.ID) == 0 && resp.Error != nil {
			// Only Close delivers an id-less response: the child is gone.
			return nil, gwerrors.NewTransportChildExitedError(resp.Error.Message, nil)
		}
		return resp, nil
	case <-timer.C:
		call.dropped.Store(true)
		c.dropPending(id)
		return nil, gwerrors.NewTransportTimeoutError(fmt.Sprintf("timed out waiting for response to %s", method), nil)
	case <-ctx.Done():
		call.dropped.Store(true)
		c.dropPending(id)
		return nil, gwerrors.NewTransportTimeoutError("caller cancelled", ctx.Err())
	}
}

func (c *Conn) dropPending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(frame); err != nil {
		return err
	}
	_, err := c.stdin.Write([]byte("\n"))
	return err
}

// Handshake performs the MCP initialize exchange. The reply must carry a
// result object; an error reply or timeout fails the instance.
func (c *Conn) Handshake(ctx context.Context, timeout time.Duration) error {
	params, _ := json.Marshal(map[string]any{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      ClientInfo,
		"capabilities":    map[string]any{},
	})

	resp, err := c.Send(ctx, "initialize", params, timeout)
	if err != nil {
		return gwerrors.NewTransportHandshakeFailedError("initialize request failed", err)
	}
	if resp.Error != nil {
		return gwerrors.NewTransportHandshakeFailedError(
			fmt.Sprintf("initialize returned error: %s", resp.Error.Message), nil)
	}
	if len(resp.Result) == 0 {
		return gwerrors.NewTransportHandshakeFailedError("initialize response had no result", nil)
	}
	return nil
}

// Close marks the connection closed and fails every pending call with
// TransportChildExited.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.mu.Unlock()

	errResp := jsonrpc.NewErrorResponse(nil, gwerrors.NewTransportChildExitedError("child process exited", nil))
	for _, call := range pending {
		call.complete(errResp)
	}
}

func decodeID(raw json.RawMessage) (int64, bool) {
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, false
	}
	return id, true
}

func bytesContainsNewline(b []byte) bool {
	for _, c := range b {
		if c == '\n' {
			return true
		}
	}
	return false
}

// sanitizeJSONLine trims whitespace and strips the UTF-8 replacement
// character and other non-printable control bytes some MCP SDKs emit
// around JSON frames.
func sanitizeJSONLine(b []byte) []byte {
	s := strings.TrimSpace(string(b))
	s = strings.ReplaceAll(s, "�", "")
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == ' ' || !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}
	return []byte(strings.TrimSpace(sb.String()))
}
