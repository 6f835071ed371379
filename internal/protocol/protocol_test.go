package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantCode int
		wantID   string
	}{
		{"valid", `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`, 0, "7"},
		{"string id", `{"jsonrpc":"2.0","id":"abc","method":"ping"}`, 0, `"abc"`},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, 0, ""},
		{"garbage", `{not json`, CodeParseError, ""},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, CodeInvalidRequest, "1"},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, CodeInvalidRequest, "1"},
		{"object id", `{"jsonrpc":"2.0","id":{"a":1},"method":"ping"}`, CodeInvalidRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rpcErr := DecodeRequest([]byte(tt.payload))
			if tt.wantCode == 0 {
				if rpcErr != nil {
					t.Fatalf("unexpected error: %v", rpcErr)
				}
			} else if rpcErr == nil || rpcErr.Code != tt.wantCode {
				t.Fatalf("expected code %d, got %+v", tt.wantCode, rpcErr)
			}
			if string(req.ID) != tt.wantID {
				t.Fatalf("expected id %q, got %q", tt.wantID, string(req.ID))
			}
		})
	}
}

func TestResponseEchoesIDUnchanged(t *testing.T) {
	resp := NewResult(json.RawMessage(`1.50`), map[string]any{})
	payload, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"id":1.50`) {
		t.Fatalf("id was rewritten: %s", payload)
	}

	resp = NewErrorResponse(nil, NewError(CodeParseError, "parse error"))
	payload, _ = json.Marshal(resp)
	if !strings.Contains(string(payload), `"id":null`) {
		t.Fatalf("expected null id, got %s", payload)
	}
}

func TestContentBlockKeepsUnknownKinds(t *testing.T) {
	input := `{"content":[{"type":"text","text":"hi"},{"type":"image","data":"AAAA","mimeType":"image/png"}],"isError":false}`

	var result CallToolResult
	if err := json.Unmarshal([]byte(input), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(result.Content))
	}
	if result.Content[0].Kind != ContentText || result.Content[0].Text != "hi" {
		t.Fatalf("unexpected text block: %+v", result.Content[0])
	}
	if result.Content[1].Kind != "image" {
		t.Fatalf("expected image kind, got %q", result.Content[1].Kind)
	}

	out, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"mimeType":"image/png"`) {
		t.Fatalf("unknown block payload lost: %s", out)
	}
}

func TestContentBlockWithoutTypeIsRejected(t *testing.T) {
	var block ContentBlock
	if err := json.Unmarshal([]byte(`{"text":"x"}`), &block); err == nil {
		t.Fatal("expected error for block without type")
	}
}

func TestJSONResult(t *testing.T) {
	result := JSONResult(map[string]int{"a": 1})
	if result.IsError {
		t.Fatalf("unexpected error result")
	}
	if !strings.Contains(result.Text(), `"a": 1`) {
		t.Fatalf("expected indented json, got %q", result.Text())
	}

	result = JSONResult(make(chan int))
	if !result.IsError {
		t.Fatalf("expected error result for unmarshalable data")
	}
}

func TestNegotiateVersion(t *testing.T) {
	if got := NegotiateVersion("2024-11-05", LatestVersion); got != "2024-11-05" {
		t.Fatalf("expected client version, got %s", got)
	}
	if got := NegotiateVersion("1999-01-01", "2025-03-26"); got != "2025-03-26" {
		t.Fatalf("expected preferred version, got %s", got)
	}
	if got := NegotiateVersion("", "bogus"); got != LatestVersion {
		t.Fatalf("expected latest version, got %s", got)
	}
}

func TestToolDefinitionAlwaysDeclaresRequired(t *testing.T) {
	tests := []struct {
		name   string
		schema *jsonschema.Schema
		want   string
	}{
		{"no required", &jsonschema.Schema{Type: "object"}, `[]`},
		{"empty required", &jsonschema.Schema{Type: "object", Required: []string{}}, `[]`},
		{"with required", &jsonschema.Schema{Type: "object", Required: []string{"line"}}, `["line"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(ToolDefinition{Name: "t", Description: "d", InputSchema: tt.schema})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var def struct {
				Name        string `json:"name"`
				InputSchema struct {
					Type     string          `json:"type"`
					Required json.RawMessage `json:"required"`
				} `json:"inputSchema"`
			}
			if err := json.Unmarshal(data, &def); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if def.Name != "t" || def.InputSchema.Type != "object" {
				t.Fatalf("unexpected definition %s", data)
			}
			if string(def.InputSchema.Required) != tt.want {
				t.Errorf("required = %s, want %s", def.InputSchema.Required, tt.want)
			}
		})
	}
}
