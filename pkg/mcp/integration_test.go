package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
	"github.com/Sumatoshi-tech/cascadedp/pkg/mcp"
)

func nameFor(t *testing.T, word string) dt.DT {
	t.Helper()

	id, err := dt.EncodeWord(word)
	require.NoError(t, err)

	return dt.DT{Domain: id, Tag: id}
}

func newLeaf(t *testing.T, word string) *cdp.Record {
	t.Helper()

	data, err := cdp.NewData(nameFor(t, word), dt.DT{}, 0, cdp.DataValue, true, []byte(word), len(word), nil)
	require.NoError(t, err)

	rec, err := cdp.Initialize(nameFor(t, word), cdp.ShadowingNone, false, data)
	require.NoError(t, err)

	return rec
}

func newBranch(t *testing.T, word string) *cdp.Record {
	t.Helper()

	rec, err := cdp.InitializeStore(nameFor(t, word), cdp.ShadowingMany, false, cdp.BackendList, cdp.ByInsertion, nil)
	require.NoError(t, err)

	return rec
}

// buildTestTree builds:
//
//	root
//	  system
//	    agent (leaf)
func buildTestTree(t *testing.T) *cdp.Record {
	t.Helper()

	root := newBranch(t, "root")
	system := newBranch(t, "system")

	require.NoError(t, root.Add(system))
	require.NoError(t, system.Add(newLeaf(t, "agent")))

	return root
}

// connectedSession starts srv over an in-memory transport, connects a
// client, and registers cleanup to tear both down. Every integration test
// in this file follows this same shape.
func connectedSession(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-serverDone
	})

	return session
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Root: buildTestTree(t)})
	session := connectedSession(t, srv)

	ctx := context.Background()

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, toolsResult)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
	}

	assert.Contains(t, toolNames, "find_by_path")
	assert.Contains(t, toolNames, "list_children")
	assert.Contains(t, toolNames, "path")
	assert.Len(t, toolNames, 3)

	for _, tool := range toolsResult.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
}

func TestMCPServer_InMemoryTransport_CallFindByPath(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Root: buildTestTree(t)})
	session := connectedSession(t, srv)

	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "find_by_path",
		Arguments: map[string]any{"path": "/system/agent"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.NotEmpty(t, result.Content)
}

func TestMCPServer_InMemoryTransport_CallListChildren(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Root: buildTestTree(t)})
	session := connectedSession(t, srv)

	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "list_children",
		Arguments: map[string]any{"path": "/system"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.NotEmpty(t, result.Content)
}

func TestMCPServer_InMemoryTransport_CallPath(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Root: buildTestTree(t)})
	session := connectedSession(t, srv)

	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "path",
		Arguments: map[string]any{"domain": "agent"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.NotEmpty(t, result.Content)
}

func TestMCPServer_InMemoryTransport_CallFindByPath_Error(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Root: buildTestTree(t)})
	session := connectedSession(t, srv)

	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "find_by_path",
		Arguments: map[string]any{"path": ""},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}
