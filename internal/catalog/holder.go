package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/matmap/internal/model"
	"github.com/ppiankov/matmap/internal/search"
)

// Snapshot is one complete catalog and its filter index. It is never mutated.
type Snapshot struct {
	Records  []*model.NormalizedRecord `json:"records" yaml:"records"`
	Index    search.FilterIndex        `json:"index" yaml:"index"`
	Stats    LoadStats                 `json:"stats" yaml:"stats"`
	LoadedAt time.Time                 `json:"loaded_at" yaml:"loaded_at"`
}

// NewSnapshot indexes records
func NewSnapshot(records []*model.NormalizedRecord, stats LoadStats) *Snapshot {
	return &Snapshot{
		Records:  records,
		Index:    search.BuildIndex(records),
		Stats:    stats,
		LoadedAt: time.Now().UTC(),
	}
}

// Filter returns the records matching the selection, in catalog order
func (s *Snapshot) Filter(materials, eos []string) []*model.NormalizedRecord {
	return search.Filter(s.Records, materials, eos)
}

// Holder publishes the current snapshot. Readers see either the previous
// complete catalog or the new one, never a partial load.
type Holder struct {
	loader      *Loader
	manifestURL string
	dataBase    string

	current atomic.Pointer[Snapshot]
	reload  sync.Mutex
}

// NewHolder creates an empty holder; call Reload to populate it
func NewHolder(loader *Loader, manifestURL, dataBase string) *Holder {
	return &Holder{loader: loader, manifestURL: manifestURL, dataBase: dataBase}
}

// Current returns the published snapshot, or nil before the first successful load
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Reload runs a full load and publishes the result. On failure the previous
// snapshot stays in place.
func (h *Holder) Reload(ctx context.Context) (*Snapshot, error) {
	h.reload.Lock()
	defer h.reload.Unlock()

	records, stats, err := h.loader.Load(ctx, h.manifestURL, h.dataBase)
	if err != nil {
		return nil, err
	}

	snap := NewSnapshot(records, stats)
	h.current.Store(snap)
	return snap, nil
}
