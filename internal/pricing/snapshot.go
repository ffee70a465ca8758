package pricing

import (
	"encoding/json"
	"fmt"
)

// PriceEntry is one record of the external price index.
// A nil Price means the source knows the item but has no price for it.
type PriceEntry struct {
	Price   *float64            `json:"price"`
	Doppler map[string]*float64 `json:"doppler,omitempty"`
}

// Snapshot is an immutable view of the price index. Refreshes replace the
// whole snapshot; a snapshot is never modified after it is decoded.
type Snapshot struct {
	entries map[string]PriceEntry
}

// EmptySnapshot returns a snapshot that resolves nothing
func EmptySnapshot() *Snapshot {
	return &Snapshot{entries: map[string]PriceEntry{}}
}

// DecodeSnapshot parses the price source wire format:
//
//	{"<market hash name>": {"price": 1.23, "doppler": {"Phase 2": 4.56}}}
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var entries map[string]PriceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse price index: %w", err)
	}
	if entries == nil {
		entries = map[string]PriceEntry{}
	}
	return &Snapshot{entries: entries}, nil
}

// Lookup returns the price for name. When the entry has a Doppler table and a
// phase is given, the phase price is returned; without a Doppler table the
// phase is ignored. ok is false when no price is known, which is distinct
// from a legitimate price of 0.
func (s *Snapshot) Lookup(name, phase string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	entry, ok := s.entries[name]
	if !ok {
		return 0, false
	}

	if entry.Doppler != nil && phase != "" {
		p, ok := entry.Doppler[phase]
		if !ok || p == nil {
			return 0, false
		}
		return *p, true
	}

	if entry.Price == nil {
		return 0, false
	}
	return *entry.Price, true
}

// Len returns the number of entries
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}
