package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
	"github.com/stacklok/mcp-vgateway/pkg/jsonrpc"
)

// fakeChild wires a Conn to an io.Pipe pair and lets the test play the role
// of the child process: read what the gateway wrote to stdin, write replies
// onto what the gateway reads as stdout.
type fakeChild struct {
	conn       *Conn
	childStdin *bufio.Reader // what the gateway wrote, readable by the test
	toGateway  io.Writer     // test writes here; gateway reads it as stdout
}

func newFakeChild(t *testing.T) *fakeChild {
	t.Helper()
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	stderrR, _ := io.Pipe()

	conn := NewConn("test", stdinW, stdoutR, stderrR)
	t.Cleanup(conn.Close)

	return &fakeChild{
		conn:       conn,
		childStdin: bufio.NewReader(stdinR),
		toGateway:  stdoutW,
	}
}

func (f *fakeChild) readRequestLine(t *testing.T) map[string]any {
	t.Helper()
	line, err := f.childStdin.ReadString('\n')
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	return m
}

func (f *fakeChild) reply(t *testing.T, id any, result any) {
	t.Helper()
	resp := map[string]any{"jsonrpc": "2.0", "id": id, "result": result}
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	_, err = f.toGateway.Write(append(b, '\n'))
	require.NoError(t, err)
}

func (f *fakeChild) replyError(t *testing.T, id any, code int, message string) {
	t.Helper()
	resp := map[string]any{"jsonrpc": "2.0", "id": id, "error": map[string]any{"code": code, "message": message}}
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	_, err = f.toGateway.Write(append(b, '\n'))
	require.NoError(t, err)
}

func TestSend_HappyPath(t *testing.T) {
	fc := newFakeChild(t)

	done := make(chan *struct {
		resp map[string]any
		err  error
	}, 1)

	go func() {
		resp, err := fc.conn.Send(context.Background(), "tools/call", json.RawMessage(`{"name":"x"}`), time.Second)
		var m map[string]any
		if resp != nil {
			_ = json.Unmarshal(resp.Result, &m)
		}
		done <- &struct {
			resp map[string]any
			err  error
		}{m, err}
	}()

	req := fc.readRequestLine(t)
	assert.Equal(t, "2.0", req["jsonrpc"])
	assert.Equal(t, "tools/call", req["method"])
	id := req["id"]

	fc.reply(t, id, map[string]any{"ok": true})

	result := <-done
	require.NoError(t, result.err)
	assert.Equal(t, true, result.resp["ok"])
}

func TestSend_Timeout(t *testing.T) {
	fc := newFakeChild(t)

	_, err := fc.conn.Send(context.Background(), "tools/call", json.RawMessage(`{}`), 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, gwerrors.IsTransportTimeout(err))
}

func TestSend_UpstreamError(t *testing.T) {
	fc := newFakeChild(t)

	type result struct {
		resp *jsonrpc.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := fc.conn.Send(context.Background(), "tools/call", json.RawMessage(`{}`), time.Second)
		done <- result{resp, err}
	}()

	req := fc.readRequestLine(t)
	fc.replyError(t, req["id"], -32601, "Method not found: nope")

	r := <-done
	require.NoError(t, r.err)
	require.NotNil(t, r.resp.Error)
	assert.Equal(t, -32601, r.resp.Error.Code)
	assert.Equal(t, "Method not found: nope", r.resp.Error.Message)
}

func TestHandshake_Success(t *testing.T) {
	fc := newFakeChild(t)

	done := make(chan error, 1)
	go func() {
		done <- fc.conn.Handshake(context.Background(), time.Second)
	}()

	req := fc.readRequestLine(t)
	assert.Equal(t, "initialize", req["method"])
	params := req["params"].(map[string]any)
	assert.Equal(t, ProtocolVersion, params["protocolVersion"])

	fc.reply(t, req["id"], map[string]any{"protocolVersion": ProtocolVersion})

	require.NoError(t, <-done)
}

func TestHandshake_FailsOnErrorReply(t *testing.T) {
	fc := newFakeChild(t)

	done := make(chan error, 1)
	go func() {
		done <- fc.conn.Handshake(context.Background(), time.Second)
	}()

	req := fc.readRequestLine(t)
	fc.replyError(t, req["id"], -32000, "boom")

	err := <-done
	require.Error(t, err)
	assert.True(t, gwerrors.IsTransportHandshakeFailed(err))
}

func TestClose_FailsPendingCalls(t *testing.T) {
	fc := newFakeChild(t)

	done := make(chan error, 1)
	go func() {
		_, err := fc.conn.Send(context.Background(), "tools/call", json.RawMessage(`{}`), 5*time.Second)
		done <- err
	}()

	fc.readRequestLine(t)
	fc.conn.Close()

	err := <-done
	require.Error(t, err)
	assert.True(t, gwerrors.IsTransportChildExited(err))
}

func TestSanitizeJSONLine_StripsReplacementCharAndControls(t *testing.T) {
	input := []byte("\x01{\"jsonrpc\": \"2.0\"}\x01")
	assert.Equal(t, `{"jsonrpc": "2.0"}`, string(sanitizeJSONLine(input)))

	withReplacement := []byte("�" + `{"jsonrpc": "2.0"}` + "�")
	assert.Equal(t, `{"jsonrpc": "2.0"}`, string(sanitizeJSONLine(withReplacement)))
}

func TestNewConn_IgnoresNonJSONStdoutLines(t *testing.T) {
	fc := newFakeChild(t)
	_, err := fc.toGateway.Write([]byte("Server starting up...\n"))
	require.NoError(t, err)

	// A subsequent real frame must still be delivered.
	done := make(chan error, 1)
	go func() {
		_, err := fc.conn.Send(context.Background(), "tools/list", nil, time.Second)
		done <- err
	}()
	req := fc.readRequestLine(t)
	fc.reply(t, req["id"], map[string]any{})
	require.NoError(t, <-done)
}
