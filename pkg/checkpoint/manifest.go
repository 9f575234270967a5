package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// manifestVersion is the on-disk schema version for the manifest payload.
const manifestVersion = 1

// manifestEntry mirrors one slot of a hibernated store's record-value
// array. Slot 0 (the allocator's reserved sentinel) and any freed slot left
// behind by prior deletes carry Valid=false and are otherwise empty.
//
// Checkpointing only supports leaf data records: a child carrying its own
// nested Store would need its structure and manifest recursively embedded,
// which this format does not attempt. Branch children must be checkpointed
// as their own named snapshot.
type manifestEntry struct {
	Valid     bool   `json:"valid"`
	Domain    uint64 `json:"domain"`
	Tag       uint64 `json:"tag"`
	Shadowing uint8  `json:"shadowing"`
	Hidden    bool   `json:"hidden"`
	Attribute uint32 `json:"attribute"`
	EncDomain uint64 `json:"enc_domain"`
	EncTag    uint64 `json:"enc_tag"`
	DataType  uint8  `json:"data_type"`
	Writable  bool   `json:"writable"`
	Capacity  int    `json:"capacity"`
	Value     []byte `json:"value,omitempty"`
}

// manifest is the full record of every hibernated slot's payload, written
// alongside a structure blob produced by Store.SerializeStructure.
type manifest struct {
	Version int             `json:"version"`
	Entries []manifestEntry `json:"entries"`
}

// buildManifest captures records (as returned by Store.HibernatedRecords)
// into a manifest ready for JSON encoding.
func buildManifest(records []*cdp.Record) (manifest, error) {
	entries := make([]manifestEntry, len(records))

	for i, r := range records {
		if r == nil {
			continue
		}

		entry, err := encodeEntry(r)
		if err != nil {
			return manifest{}, fmt.Errorf("checkpoint: record at slot %d: %w", i, err)
		}

		entries[i] = entry
	}

	return manifest{Version: manifestVersion, Entries: entries}, nil
}

func encodeEntry(r *cdp.Record) (manifestEntry, error) {
	if !r.IsData() {
		return manifestEntry{}, fmt.Errorf("%w: record %v carries a nested store", ErrUnsupportedRecord, r.Meta.Name)
	}

	data := r.Data()

	return manifestEntry{
		Valid:     true,
		Domain:    uint64(r.Meta.Name.Domain),
		Tag:       uint64(r.Meta.Name.Tag),
		Shadowing: uint8(r.Meta.Shadowing),
		Hidden:    r.Meta.Hidden,
		Attribute: data.Attribute,
		EncDomain: uint64(data.Encoding.Domain),
		EncTag:    uint64(data.Encoding.Tag),
		DataType:  uint8(data.Type()),
		Writable:  data.Writable(),
		Capacity:  data.Capacity(),
		Value:     append([]byte(nil), data.Bytes()...),
	}, nil
}

// restoreRecords reverses buildManifest, reconstructing the []*cdp.Record
// slice a store expects from Store.SetHibernatedRecords. Freed/sentinel
// slots are left nil.
func restoreRecords(m manifest) ([]*cdp.Record, error) {
	records := make([]*cdp.Record, len(m.Entries))

	for i, e := range m.Entries {
		if !e.Valid {
			continue
		}

		name := dt.DT{Domain: dt.ID(e.Domain), Tag: dt.ID(e.Tag)}
		encoding := dt.DT{Domain: dt.ID(e.EncDomain), Tag: dt.ID(e.EncTag)}

		data, err := cdp.NewData(name, encoding, e.Attribute, cdp.DataType(e.DataType), e.Writable, e.Value, e.Capacity, nil)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: rebuild data at slot %d: %w", i, err)
		}

		rec, err := cdp.Initialize(name, cdp.Shadowing(e.Shadowing), e.Hidden, data)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: rebuild record at slot %d: %w", i, err)
		}

		records[i] = rec
	}

	return records, nil
}

// encodeManifest JSON-marshals m, then LZ4-compresses the result whenever it
// exceeds threshold bytes. The returned flag reports whether compression was
// applied; callers need the uncompressed length to size the decompression
// buffer, which is returned alongside.
func encodeManifest(m manifest, threshold int) (payload []byte, compressed bool, rawLen int, err error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, false, 0, fmt.Errorf("checkpoint: marshal manifest: %w", err)
	}

	if len(raw) <= threshold {
		return raw, false, len(raw), nil
	}

	dst := make([]byte, lz4.CompressBlockBound(len(raw)))

	n, err := lz4.CompressBlock(raw, dst, nil)
	if err != nil {
		return nil, false, 0, fmt.Errorf("checkpoint: compress manifest: %w", err)
	}

	if n == 0 || n >= len(raw) {
		// Incompressible payload (CompressBlock returns 0 when it can't beat
		// the input); fall back to storing it raw rather than discarding it.
		return raw, false, len(raw), nil
	}

	return dst[:n], true, len(raw), nil
}

// decodeManifest reverses encodeManifest.
func decodeManifest(payload []byte, compressed bool, rawLen int) (manifest, error) {
	raw := payload

	if compressed {
		raw = make([]byte, rawLen)

		if _, err := lz4.UncompressBlock(payload, raw); err != nil {
			return manifest{}, fmt.Errorf("checkpoint: decompress manifest: %w", err)
		}
	}

	var m manifest

	if err := json.Unmarshal(raw, &m); err != nil {
		return manifest{}, fmt.Errorf("checkpoint: unmarshal manifest: %w", err)
	}

	return m, nil
}
