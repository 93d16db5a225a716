package tools

import (
	"encoding/json"

	"github.com/payu-labs/payu-mcp-server/internal/payu"
)

// ContentItem is one piece of tool output content.
type ContentItem struct {
	Type string
	Text string
}

// Result is a transport-agnostic tool call result. The registry adapts it
// to the MCP SDK's CallToolResult.
type Result struct {
	Content           []ContentItem
	StructuredContent map[string]interface{}
	IsError           bool
}

// successResult serializes payload as both structured content and a text
// rendering of the same JSON.
func successResult(payload interface{}) Result {
	data, err := json.Marshal(payload)
	if err != nil {
		return errorResult(payu.NewUpstreamError(0, "unserializable tool result"))
	}

	var structured map[string]interface{}
	_ = json.Unmarshal(data, &structured)

	return Result{
		Content:           []ContentItem{{Type: "text", Text: string(data)}},
		StructuredContent: structured,
	}
}

// errorResult maps an internal error into the structured {code, message}
// payload the protocol layer relays to the AI client. Raw errors never
// cross the tool boundary.
func errorResult(err error) Result {
	apiErr := payu.AsError(err)
	payload := map[string]interface{}{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.StatusCode != 0 {
		payload["status_code"] = apiErr.StatusCode
	}

	data, _ := json.Marshal(payload)
	return Result{
		Content:           []ContentItem{{Type: "text", Text: string(data)}},
		StructuredContent: payload,
		IsError:           true,
	}
}

// validationError is shorthand for the most common handler failure.
func validationError(message string) Result {
	return errorResult(payu.NewValidationError(message))
}

// Argument helpers. MCP arguments arrive as loosely-typed JSON maps; these
// coerce without panicking on absent or mistyped values.

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func floatArg(args map[string]interface{}, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	if v, ok := floatArg(args, key); ok {
		return int(v)
	}
	return fallback
}
