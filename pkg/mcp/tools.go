package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameFindByPath   = "find_by_path"
	ToolNameListChildren = "list_children"
	ToolNamePath         = "path"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
	// ErrEmptyLookupName indicates both domain and tag lookup parameters are empty.
	ErrEmptyLookupName = errors.New("domain and tag parameters are required and must not both be empty")
)

// FindByPathInput is the input schema for the find_by_path tool.
type FindByPathInput struct {
	Path string `json:"path" jsonschema:"slash-separated path from the tree root, e.g. /system/agent/watcher"`
}

// ListChildrenInput is the input schema for the list_children tool.
type ListChildrenInput struct {
	Path string `json:"path" jsonschema:"slash-separated path to a store-bearing record"`
}

// PathInput is the input schema for the path tool.
type PathInput struct {
	Domain string `json:"domain,omitempty" jsonschema:"decoded domain name of the record to locate"`
	Tag    string `json:"tag,omitempty"    jsonschema:"decoded tag name of the record to locate"`
}

// RecordInfo describes one record's identity and position in the tree.
type RecordInfo struct {
	Path      string `json:"path"`
	Domain    string `json:"domain"`
	Tag       string `json:"tag"`
	Kind      string `json:"kind"`
	Shadowing string `json:"shadowing"`
	Hidden    bool   `json:"hidden"`
	DataSize  int    `json:"data_size,omitempty"`
}

// ChildrenOutput is the result of a list_children call.
type ChildrenOutput struct {
	Children []RecordInfo `json:"children"`
}

// ToolOutput is a generic wrapper for tool results, shared by all three
// tree tools.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
