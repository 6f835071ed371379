package tools

import "github.com/google/jsonschema-go/jsonschema"

const (
	argSessionID      = "session_id"
	argFilePath       = "file_path"
	argLine           = "line"
	argCondition      = "condition"
	argLogMessage     = "log_message"
	argSuspendPolicy  = "suspend_policy"
	argEnabled        = "enabled"
	argTemporary      = "temporary"
	argBreakpointID   = "breakpoint_id"
	argMaxFrames      = "max_frames"
	argFrameIndex     = "frame_index"
	argExpression     = "expression"
	argName           = "name"
	argMode           = "mode"
	argConfiguration  = "configuration_name"
	defaultMaxFrames  = 50
	maxFramesLimit    = 200
	presentationLimit = 150
)

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	if required == nil {
		required = []string{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func boolProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func intProp(description string, minimum, maximum *float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description, Minimum: minimum, Maximum: maximum}
}

func enumProp(description string, values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Description: description, Enum: enum}
}

func bound(v float64) *float64 { return &v }

func sessionIDProp() *jsonschema.Schema {
	return stringProp("Debug session ID. Uses the current session if omitted.")
}

// sessionOnlySchema is the schema of tools whose only argument is session_id.
func sessionOnlySchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{argSessionID: sessionIDProp()})
}
