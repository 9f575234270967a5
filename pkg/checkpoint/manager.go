// Package checkpoint persists a hibernated store to disk and restores it,
// built directly on the red-black allocator's Hibernate/Boot/Serialize/
// Deserialize machinery in pkg/cdp and LZ4 compression for the record
// manifest.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/cdpconfig"
)

const (
	fileVersion = 1
	dirPerm     = 0o755
	filePerm    = 0o644
	fileExt     = ".ckpt"
)

// Manager snapshots a hibernated store's structure and record payloads to a
// single file per name, and restores them into a freshly constructed store.
// It does not itself decide when to checkpoint: Save is always an explicit,
// operator-triggered action (e.g. a `checkpoint save` CLI command), never a
// background timer.
type Manager struct {
	Dir                  string
	CompressionThreshold int
}

// NewManager builds a Manager targeting dir, compressing manifests larger
// than compressionThreshold bytes.
func NewManager(dir string, compressionThreshold int) *Manager {
	return &Manager{Dir: dir, CompressionThreshold: compressionThreshold}
}

// NewManagerFromConfig builds a Manager from a loaded CheckpointConfig.
func NewManagerFromConfig(cfg cdpconfig.CheckpointConfig) *Manager {
	return NewManager(cfg.Dir, cfg.CompressionThreshold)
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.Dir, name+fileExt)
}

// Path returns the on-disk location Save(name, ...) would write to.
func (m *Manager) Path(name string) string {
	return m.path(name)
}

// Exists reports whether a checkpoint named name has been saved.
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.path(name))

	return err == nil
}

// Save hibernates store (if it isn't already) and writes its structural
// arrays plus a manifest of every record payload to Dir/name.ckpt,
// replacing any existing file of the same name.
func (m *Manager) Save(name string, store *cdp.Store) error {
	if err := os.MkdirAll(m.Dir, dirPerm); err != nil {
		return fmt.Errorf("checkpoint: create dir %s: %w", m.Dir, err)
	}

	hibernated, err := store.IsHibernated()
	if err != nil {
		return fmt.Errorf("checkpoint: check hibernation state: %w", err)
	}

	if !hibernated {
		if err := store.Hibernate(); err != nil {
			return fmt.Errorf("checkpoint: hibernate: %w", err)
		}
	}

	records, err := store.HibernatedRecords()
	if err != nil {
		return fmt.Errorf("checkpoint: read records: %w", err)
	}

	structureBytes, err := store.SerializeStructure()
	if err != nil {
		return fmt.Errorf("checkpoint: serialize structure: %w", err)
	}

	man, err := buildManifest(records)
	if err != nil {
		return err
	}

	manifestBytes, compressed, rawLen, err := encodeManifest(man, m.CompressionThreshold)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	if err := writeFile(&buf, structureBytes, manifestBytes, compressed, rawLen); err != nil {
		return err
	}

	if err := os.WriteFile(m.path(name), buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", m.path(name), err)
	}

	return nil
}

// Load reads Dir/name.ckpt and restores it into store, which must already
// be constructed with a red-black backend and have no children of its own.
// Load calls Store.Boot; the store is live and ready for use on return.
func (m *Manager) Load(name string, store *cdp.Store) error {
	raw, err := os.ReadFile(m.path(name))
	if err != nil {
		return fmt.Errorf("checkpoint: read %s: %w", m.path(name), err)
	}

	structureBytes, manifestBytes, compressed, rawLen, err := readFile(raw)
	if err != nil {
		return err
	}

	man, err := decodeManifest(manifestBytes, compressed, rawLen)
	if err != nil {
		return err
	}

	records, err := restoreRecords(man)
	if err != nil {
		return err
	}

	if err := store.DeserializeStructure(structureBytes); err != nil {
		return fmt.Errorf("checkpoint: deserialize structure: %w", err)
	}

	if err := store.SetHibernatedRecords(records); err != nil {
		return fmt.Errorf("checkpoint: install records: %w", err)
	}

	if err := store.Boot(); err != nil {
		return fmt.Errorf("checkpoint: boot: %w", err)
	}

	return nil
}

// writeFile lays out one checkpoint file as a version byte, a compressed
// flag byte, a varint-prefixed structure blob, a varint raw-manifest
// length, and a varint-prefixed (possibly compressed) manifest blob.
func writeFile(w *bytes.Buffer, structureBytes, manifestBytes []byte, compressed bool, rawLen int) error {
	w.WriteByte(fileVersion)

	if compressed {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}

	var hdr [binary.MaxVarintLen64]byte

	writeVarint := func(v int64) error {
		n := binary.PutVarint(hdr[:], v)
		_, err := w.Write(hdr[:n])

		return err
	}

	if err := writeVarint(int64(len(structureBytes))); err != nil {
		return fmt.Errorf("checkpoint: write structure length: %w", err)
	}

	w.Write(structureBytes)

	if err := writeVarint(int64(rawLen)); err != nil {
		return fmt.Errorf("checkpoint: write manifest raw length: %w", err)
	}

	if err := writeVarint(int64(len(manifestBytes))); err != nil {
		return fmt.Errorf("checkpoint: write manifest length: %w", err)
	}

	w.Write(manifestBytes)

	return nil
}

func readFile(raw []byte) (structureBytes, manifestBytes []byte, compressed bool, rawLen int, err error) {
	r := bytes.NewReader(raw)

	version, err := r.ReadByte()
	if err != nil {
		return nil, nil, false, 0, fmt.Errorf("%w: missing version byte", ErrCorruptFile)
	}

	if version != fileVersion {
		return nil, nil, false, 0, fmt.Errorf("%w: got version %d", ErrVersionMismatch, version)
	}

	flag, err := r.ReadByte()
	if err != nil {
		return nil, nil, false, 0, fmt.Errorf("%w: missing compression flag", ErrCorruptFile)
	}

	structLen, err := binary.ReadVarint(r)
	if err != nil {
		return nil, nil, false, 0, fmt.Errorf("%w: structure length: %v", ErrCorruptFile, err)
	}

	structureBytes = make([]byte, structLen)
	if _, err := io.ReadFull(r, structureBytes); err != nil {
		return nil, nil, false, 0, fmt.Errorf("%w: structure body: %v", ErrCorruptFile, err)
	}

	rawManifestLen, err := binary.ReadVarint(r)
	if err != nil {
		return nil, nil, false, 0, fmt.Errorf("%w: manifest raw length: %v", ErrCorruptFile, err)
	}

	manifestLen, err := binary.ReadVarint(r)
	if err != nil {
		return nil, nil, false, 0, fmt.Errorf("%w: manifest length: %v", ErrCorruptFile, err)
	}

	manifestBytes = make([]byte, manifestLen)
	if _, err := io.ReadFull(r, manifestBytes); err != nil {
		return nil, nil, false, 0, fmt.Errorf("%w: manifest body: %v", ErrCorruptFile, err)
	}

	return structureBytes, manifestBytes, flag == 1, int(rawManifestLen), nil
}
