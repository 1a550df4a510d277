package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"offerflow/internal"
)

// Records older than this are purged on load.
const RetentionDays = 7

type snapshot struct {
	Offers      map[string]json.RawMessage `json:"offers"`
	LastUpdated time.Time                  `json:"last_updated"`
}

type Ledger struct {
	mu     sync.Mutex
	path   string
	offers map[string]internal.PendingOffer
	log    *zap.Logger
	now    func() time.Time
}

func Open(path string, log *zap.Logger) (*Ledger, error) {
	l := &Ledger{
		path:   path,
		offers: map[string]internal.PendingOffer{},
		log:    log,
		now:    time.Now,
	}

	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load() error {
	blob, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ledger backup: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return fmt.Errorf("decode ledger backup: %w", err)
	}

	cutoff := l.now().AddDate(0, 0, -RetentionDays)
	for id, raw := range snap.Offers {
		var offer internal.PendingOffer
		if err := json.Unmarshal(raw, &offer); err != nil {
			l.log.Warn("skipping malformed ledger record", zap.String("id", id), zap.Error(err))
			continue
		}
		if offer.CreatedAt.Before(cutoff) {
			l.log.Info("purging expired ledger record", zap.String("id", id), zap.Time("createdAt", offer.CreatedAt))
			continue
		}
		if offer.Status == internal.PendingProcessing {
			offer.Status = internal.PendingFailed
			offer.Errors = append(offer.Errors, "workflow context lost before send completed")
			l.log.Warn("marking in-flight ledger record failed after restart", zap.String("id", id))
		}
		l.offers[id] = offer
	}

	l.persistLocked()
	return nil
}

func (l *Ledger) Add(offer internal.PendingOffer) error {
	if offer.ID == "" {
		return fmt.Errorf("pending offer id is empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.offers[offer.ID]; exists {
		return fmt.Errorf("pending offer already exists: %s", offer.ID)
	}
	l.offers[offer.ID] = offer
	l.persistLocked()
	return nil
}

func (l *Ledger) Update(offer internal.PendingOffer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.offers[offer.ID]; !exists {
		return fmt.Errorf("pending offer not found: %s", offer.ID)
	}
	l.offers[offer.ID] = offer
	l.persistLocked()
	return nil
}

func (l *Ledger) UpdateStatus(id string, status internal.PendingStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	offer, exists := l.offers[id]
	if !exists {
		return fmt.Errorf("pending offer not found: %s", id)
	}
	if !validTransition(offer.Status, status) {
		return fmt.Errorf("invalid status transition %s -> %s for %s", offer.Status, status, id)
	}
	offer.Status = status
	l.offers[id] = offer
	l.persistLocked()
	return nil
}

func (l *Ledger) AppendErrors(id string, errs ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	offer, exists := l.offers[id]
	if !exists {
		return fmt.Errorf("pending offer not found: %s", id)
	}
	offer.Errors = append(offer.Errors, errs...)
	l.offers[id] = offer
	l.persistLocked()
	return nil
}

func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.offers[id]; !exists {
		return fmt.Errorf("pending offer not found: %s", id)
	}
	delete(l.offers, id)
	l.persistLocked()
	return nil
}

func (l *Ledger) Get(id string) *internal.PendingOffer {
	l.mu.Lock()
	defer l.mu.Unlock()

	offer, exists := l.offers[id]
	if !exists {
		return nil
	}
	copied := offer
	return &copied
}

func (l *Ledger) GetAll() []internal.PendingOffer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]internal.PendingOffer, 0, len(l.offers))
	for _, offer := range l.offers {
		out = append(out, offer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (l *Ledger) GetPending() []internal.PendingOffer {
	all := l.GetAll()
	out := make([]internal.PendingOffer, 0, len(all))
	for _, offer := range all {
		if offer.Status == internal.PendingReview {
			out = append(out, offer)
		}
	}
	return out
}

func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.offers)
}

// Temp file then rename, so readers never observe a partial write.
func (l *Ledger) persistLocked() {
	encoded := make(map[string]json.RawMessage, len(l.offers))
	for id, offer := range l.offers {
		blob, err := json.Marshal(offer)
		if err != nil {
			l.log.Error("encode ledger record", zap.String("id", id), zap.Error(err))
			continue
		}
		encoded[id] = blob
	}

	blob, err := json.MarshalIndent(snapshot{Offers: encoded, LastUpdated: l.now().UTC()}, "", "  ")
	if err != nil {
		l.log.Error("encode ledger snapshot", zap.Error(err))
		return
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.log.Error("create ledger dir", zap.Error(err))
		return
	}
	tmp, err := os.CreateTemp(dir, ".pending-offers-*")
	if err != nil {
		l.log.Error("create ledger temp file", zap.Error(err))
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		l.log.Error("write ledger snapshot", zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		l.log.Error("close ledger snapshot", zap.Error(err))
		return
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		l.log.Error("swap ledger snapshot", zap.Error(err))
	}
}

func validTransition(from, to internal.PendingStatus) bool {
	switch from {
	case internal.PendingReview:
		return to == internal.PendingProcessing
	case internal.PendingProcessing:
		return to == internal.PendingSent || to == internal.PendingFailed
	default:
		return false
	}
}
