package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{
			name: "valid tools/call",
			req: Request{
				JSONRPC: "2.0",
				ID:      json.RawMessage(`42`),
				Method:  "tools/call",
				Params:  json.RawMessage(`{"name":"linear_get_teams","arguments":{}}`),
			},
		},
		{
			name:    "wrong version",
			req:     Request{JSONRPC: "1.0", Method: "tools/list"},
			wantErr: true,
		},
		{
			name:    "empty method",
			req:     Request{JSONRPC: "2.0", Method: ""},
			wantErr: true,
		},
		{
			name:    "id is an object",
			req:     Request{JSONRPC: "2.0", Method: "tools/list", ID: json.RawMessage(`{"bad":true}`)},
			wantErr: true,
		},
		{
			name:    "tools/call missing name",
			req:     Request{JSONRPC: "2.0", Method: "tools/call", Params: json.RawMessage(`{}`)},
			wantErr: true,
		},
		{
			name: "string id accepted",
			req:  Request{JSONRPC: "2.0", Method: "tools/list", ID: json.RawMessage(`"abc"`)},
		},
		{
			name: "null id accepted",
			req:  Request{JSONRPC: "2.0", Method: "tools/list", ID: json.RawMessage(`null`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewResultResponse(t *testing.T) {
	resp := NewResultResponse(json.RawMessage(`42`), json.RawMessage(`{"ok":true}`))
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":42,"result":{"ok":true}}`, string(b))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(json.RawMessage(`7`), gwerrors.NewUnknownCapabilityError("Method not found: nope", nil))
	assert.Equal(t, gwerrors.JSONRPCMethodNotFound, resp.Error.Code)
	assert.Equal(t, "Method not found: nope", resp.Error.Message)
	assert.Equal(t, json.RawMessage(`7`), resp.ID)
}
