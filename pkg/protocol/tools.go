package protocol

import (
	"encoding/json"
)

// ContentTypeText is the only content kind tools currently produce
const ContentTypeText = "text"

// Tool represents a tool as advertised by tools/list
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult defines the response for listing tools
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams defines parameters for calling a tool
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// Content is a single item of tool output
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult defines the response for tool calls
type CallToolResult struct {
	Content []Content `json:"content"`
}

// TextResult builds a single-item text result.
func TextResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: ContentTypeText, Text: text}},
	}
}
