package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// shadowingNames renders cdp.Shadowing for display.
var shadowingNames = map[cdp.Shadowing]string{
	cdp.ShadowingNone:   "none",
	cdp.ShadowingSingle: "single",
	cdp.ShadowingMany:   "many",
}

// decodeSegment renders one half of a record's name for display, falling
// back to a bracketed hex form if the id carries an encoding this server
// doesn't recognize (defensive: the tree may hold records minted outside
// this server's control).
func decodeSegment(id dt.ID) string {
	text, err := dt.Decode(id)
	if err != nil {
		return fmt.Sprintf("[%#x]", uint64(id))
	}

	return text
}

// recordPath renders rec's full path from the tree root as a slash-joined
// string, decoding each ancestor's domain name.
func recordPath(rec *cdp.Record) string {
	names := rec.Path()

	segments := make([]string, len(names))
	for i, n := range names {
		segments[i] = decodeSegment(n.Domain)
	}

	return "/" + strings.Join(segments, "/")
}

// findByPath walks root down path's slash-separated segments, returning the
// record found. An empty or "/" path resolves to root itself. Each segment
// is encoded as a Word name with matching domain and tag, the convention
// every tree builder in this server's callers follows for named children.
func findByPath(root *cdp.Record, path string) (*cdp.Record, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return root, nil
	}

	segments := strings.Split(trimmed, "/")
	names := make([]dt.DT, len(segments))

	for i, segment := range segments {
		id, err := dt.EncodeWord(segment)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q: %v", cdp.ErrInvalidName, segment, err)
		}

		names[i] = dt.DT{Domain: id, Tag: id}
	}

	rec, err := cdp.FindByPath(root, names)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %q", err, path)
	}

	return rec, nil
}

// describeRecord builds the display record for rec.
func describeRecord(rec *cdp.Record) RecordInfo {
	info := RecordInfo{
		Path:      recordPath(rec),
		Domain:    decodeSegment(rec.Meta.Name.Domain),
		Tag:       decodeSegment(rec.Meta.Name.Tag),
		Shadowing: shadowingNames[rec.Meta.Shadowing],
		Hidden:    rec.Meta.Hidden,
	}

	if rec.IsStore() {
		info.Kind = "store"
	} else {
		info.Kind = "data"
		info.DataSize = rec.Data().Size()
	}

	return info
}

// listChildren returns the direct children of rec, which must carry a
// Store. list_children never descends past one level; callers walk deeper
// by issuing another call with the child's path.
func listChildren(rec *cdp.Record) ([]RecordInfo, error) {
	if !rec.IsStore() {
		return nil, fmt.Errorf("%w: %s is a data record, not a store", cdp.ErrNoStore, recordPath(rec))
	}

	var children []RecordInfo

	err := rec.Traverse(func(child *cdp.Record, _ int) error {
		children = append(children, describeRecord(child))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return children, nil
}

// findByIdentity scans root's full subtree for a record whose decoded
// domain and/or tag match want, returning the first match in traversal
// order. Either field may be left empty to match on the other alone.
func findByIdentity(ctx context.Context, root *cdp.Record, wantDomain, wantTag string) (*cdp.Record, error) {
	var found *cdp.Record

	err := root.DeepTraverse(ctx, func(entry cdp.Entry) error {
		if found != nil {
			return nil
		}

		if wantDomain != "" && decodeSegment(entry.Record.Meta.Name.Domain) != wantDomain {
			return nil
		}

		if wantTag != "" && decodeSegment(entry.Record.Meta.Name.Tag) != wantTag {
			return nil
		}

		found = entry.Record

		return nil
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, fmt.Errorf("%w: domain=%q tag=%q", cdp.ErrNotFound, wantDomain, wantTag)
	}

	return found, nil
}

func handleFindByPath(root *cdp.Record) func(context.Context, *mcpsdk.CallToolRequest, FindByPathInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input FindByPathInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		if strings.TrimSpace(input.Path) == "" {
			return errorResult(ErrEmptyPath)
		}

		rec, err := findByPath(root, input.Path)
		if err != nil {
			return errorResult(err)
		}

		return jsonResult(describeRecord(rec))
	}
}

func handleListChildren(root *cdp.Record) func(context.Context, *mcpsdk.CallToolRequest, ListChildrenInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input ListChildrenInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		if strings.TrimSpace(input.Path) == "" {
			return errorResult(ErrEmptyPath)
		}

		rec, err := findByPath(root, input.Path)
		if err != nil {
			return errorResult(err)
		}

		children, err := listChildren(rec)
		if err != nil {
			return errorResult(err)
		}

		return jsonResult(ChildrenOutput{Children: children})
	}
}

func handlePath(root *cdp.Record) func(context.Context, *mcpsdk.CallToolRequest, PathInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(ctx context.Context, _ *mcpsdk.CallToolRequest, input PathInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		if input.Domain == "" && input.Tag == "" {
			return errorResult(ErrEmptyLookupName)
		}

		rec, err := findByIdentity(ctx, root, input.Domain, input.Tag)
		if err != nil {
			return errorResult(err)
		}

		return jsonResult(describeRecord(rec))
	}
}
