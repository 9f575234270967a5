// Package commands implements CLI command handlers for cascadedp.
package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// ErrUsage marks a command error as a user/usage error (flag misuse, an
// unresolvable path, an unknown subtree) rather than an internal failure.
// main checks errors.Is(err, ErrUsage) to pick exit code 1 vs 2.
var ErrUsage = errors.New("usage error")

// ErrPathNotFound is returned when a CLI-supplied path does not resolve
// under the record it was looked up against.
var ErrPathNotFound = errors.New("path not found")

const pathSep = "/"

// parsePath splits a "/"-separated path string (e.g. "/user/alice") into
// the dt.DT segments FindByPath expects, encoding each segment as a Word.
// A leading slash and empty segments are ignored; an empty path resolves
// to the record it is looked up against.
func parsePath(path string) ([]dt.DT, error) {
	segments := strings.Split(path, pathSep)

	result := make([]dt.DT, 0, len(segments))

	for _, seg := range segments {
		if seg == "" {
			continue
		}

		id, err := dt.EncodeWord(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid path segment %q: %v", ErrUsage, seg, err)
		}

		result = append(result, dt.DT{Domain: id, Tag: id})
	}

	return result, nil
}

// resolvePath walks root to the record named by path, reporting an
// unresolved path as a usage error rather than an internal one.
func resolvePath(root *cdp.Record, path string) (*cdp.Record, error) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	if len(segments) == 0 {
		return root, nil
	}

	rec, err := cdp.FindByPath(root, segments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %v", ErrUsage, ErrPathNotFound, path, err)
	}

	return rec, nil
}

// describeName decodes a record's name back to its source text for display
// via dt.Decode, which handles every ID coding, falling back to a hex
// rendering of the raw ID only if decoding fails.
func describeName(name dt.DT) string {
	text, err := dt.Decode(name.Domain)
	if err != nil {
		return fmt.Sprintf("0x%x", uint64(name.Domain))
	}

	return text
}

// describeKind renders whether a record is a data leaf or a store branch,
// with enough detail (backend/indexing, or byte size) to be useful on its
// own line in a table.
func describeKind(rec *cdp.Record) string {
	if rec.IsData() {
		return fmt.Sprintf("data (%d bytes)", rec.Data().Size())
	}

	return fmt.Sprintf("store (%s/%s, %d children)", backendName(rec.Store().Backend()), indexingName(rec.Store().Indexing()), rec.Store().Len())
}

func backendName(b cdp.Backend) string {
	switch b {
	case cdp.BackendList:
		return "list"
	case cdp.BackendArray:
		return "array"
	case cdp.BackendQueue:
		return "queue"
	case cdp.BackendRBTree:
		return "rbtree"
	case cdp.BackendOctree:
		return "octree"
	default:
		return "unknown"
	}
}

func indexingName(i cdp.Indexing) string {
	switch i {
	case cdp.ByInsertion:
		return "insertion"
	case cdp.ByName:
		return "name"
	case cdp.ByFunction:
		return "function"
	case cdp.ByHash:
		return "hash"
	default:
		return "unknown"
	}
}
