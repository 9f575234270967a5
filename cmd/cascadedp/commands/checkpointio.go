package commands

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/checkpoint"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

const checkpointRootWord = "ckptroot"

// loadCheckpointRoot restores a checkpoint named name from dir into a fresh
// red-black store and returns the record wrapping it, ready to traverse.
func loadCheckpointRoot(dir, name string) (*cdp.Record, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: --checkpoint-dir is required with --checkpoint", ErrUsage)
	}

	id, err := dt.EncodeWord(checkpointRootWord)
	if err != nil {
		return nil, err
	}

	rootName := dt.DT{Domain: id, Tag: id}

	rec, err := cdp.InitializeStore(rootName, cdp.ShadowingNone, false, cdp.BackendRBTree, cdp.ByName, nil)
	if err != nil {
		return nil, fmt.Errorf("build checkpoint root: %w", err)
	}

	mgr := checkpoint.NewManager(dir, 0)
	if !mgr.Exists(name) {
		return nil, fmt.Errorf("%w: no checkpoint named %q in %s", ErrUsage, name, dir)
	}

	if err := mgr.Load(name, rec.Store()); err != nil {
		return nil, fmt.Errorf("load checkpoint %q: %w", name, err)
	}

	return rec, nil
}
