package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ContentKind discriminates ContentBlock variants on the wire ("type").
type ContentKind string

const (
	ContentText ContentKind = "text"
)

// ContentBlock is one unit of a tool result payload. Only text is produced
// today; blocks of other kinds survive a decode/encode round trip untouched
// so newer peers do not break older decoders.
type ContentBlock struct {
	Kind ContentKind
	Text string

	raw json.RawMessage
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: ContentText, Text: text}
}

func (c ContentBlock) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText:
		return json.Marshal(struct {
			Type ContentKind `json:"type"`
			Text string      `json:"text"`
		}{ContentText, c.Text})
	default:
		if len(c.raw) > 0 {
			return c.raw, nil
		}
		return nil, fmt.Errorf("content block of kind %q has no payload", c.Kind)
	}
}

func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	var head struct {
		Type ContentKind `json:"type"`
		Text string      `json:"text"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Type == "" {
		return fmt.Errorf("content block without type")
	}
	c.Kind = head.Type
	switch head.Type {
	case ContentText:
		c.Text = head.Text
		c.raw = nil
	default:
		c.Text = ""
		c.raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// ToolDefinition is what tools/list advertises for one tool.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// MarshalJSON always writes the input schema's "required" array, even when
// it is empty; the schema encoder omits empty arrays.
func (d ToolDefinition) MarshalJSON() ([]byte, error) {
	schema := json.RawMessage("null")
	if d.InputSchema != nil {
		raw, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: marshal input schema: %w", d.Name, err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err == nil {
			if _, ok := fields["required"]; !ok {
				fields["required"] = json.RawMessage("[]")
				if raw, err = json.Marshal(fields); err != nil {
					return nil, err
				}
			}
		}
		schema = raw
	}
	return json.Marshal(struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"inputSchema"`
	}{d.Name, d.Description, schema})
}

// ListToolsResult is the tools/list result.
type ListToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// CallToolParams is the tools/call params object.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallToolResult is the tools/call result.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// Text returns the concatenated text of all text blocks.
func (r CallToolResult) Text() string {
	var out string
	for _, block := range r.Content {
		if block.Kind == ContentText {
			out += block.Text
		}
	}
	return out
}

// TextResult is a successful result carrying one text block.
func TextResult(text string) CallToolResult {
	return CallToolResult{Content: []ContentBlock{TextBlock(text)}}
}

// ErrorResult is a tool-level failure carrying message.
func ErrorResult(message string) CallToolResult {
	return CallToolResult{Content: []ContentBlock{TextBlock(message)}, IsError: true}
}

// Errorf is ErrorResult with formatting.
func Errorf(format string, args ...any) CallToolResult {
	return ErrorResult(fmt.Sprintf(format, args...))
}

// JSONResult marshals data as indented JSON into a text block.
// If marshaling fails, an error result is returned instead.
func JSONResult(data any) CallToolResult {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return Errorf("failed to marshal result: %v", err)
	}
	return TextResult(string(payload))
}
