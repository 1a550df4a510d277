package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"offerflow/internal"
)

func testOffer(id string, status internal.PendingStatus, createdAt time.Time) internal.PendingOffer {
	return internal.PendingOffer{
		ID:            id,
		OfferNumber:   "O-" + id,
		CustomerName:  "Acme Electric",
		CustomerEmail: "purchasing@acme.test",
		CreatedAt:     createdAt,
		Status:        status,
		TotalAmount:   1250.50,
		Lines: []internal.OfferLine{
			{Position: 1, ProductCode: "CBL-100", Quantity: 100, UnitPrice: 12.505, LineTotal: 1250.50},
		},
	}
}

func openTest(t *testing.T, path string) *Ledger {
	t.Helper()
	l, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	return l
}

func TestCrashRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	now := time.Now().UTC().Truncate(time.Second)

	l := openTest(t, path)
	require.NoError(t, l.Add(testOffer("a", internal.PendingReview, now)))
	require.NoError(t, l.Add(testOffer("b", internal.PendingReview, now.Add(time.Minute))))
	require.NoError(t, l.Add(testOffer("c", internal.PendingReview, now.Add(2*time.Minute))))

	// Simulated restart: a fresh ledger over the same backup path.
	reborn := openTest(t, path)
	require.Equal(t, 3, reborn.Count())

	got := reborn.Get("b")
	require.NotNil(t, got)
	assert.Equal(t, "O-b", got.OfferNumber)
	assert.Equal(t, "Acme Electric", got.CustomerName)
	assert.Equal(t, 1250.50, got.TotalAmount)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "CBL-100", got.Lines[0].ProductCode)
}

func TestLoadPurgesExpiredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	now := time.Now().UTC()

	l := openTest(t, path)
	require.NoError(t, l.Add(testOffer("old", internal.PendingReview, now.AddDate(0, 0, -8))))
	require.NoError(t, l.Add(testOffer("new", internal.PendingReview, now)))

	reborn := openTest(t, path)
	assert.Equal(t, 1, reborn.Count())
	assert.Nil(t, reborn.Get("old"))
	assert.NotNil(t, reborn.Get("new"))
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	blob, err := json.Marshal(map[string]any{
		"offers": map[string]any{
			"good": testOffer("good", internal.PendingReview, time.Now().UTC()),
			"bad":  "not an object",
		},
		"last_updated": time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, blob, 0o644))

	l := openTest(t, path)
	assert.Equal(t, 1, l.Count())
	assert.NotNil(t, l.Get("good"))
}

func TestLoadFailsProcessingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	now := time.Now().UTC()

	l := openTest(t, path)
	require.NoError(t, l.Add(testOffer("p", internal.PendingReview, now)))
	require.NoError(t, l.UpdateStatus("p", internal.PendingProcessing))

	reborn := openTest(t, path)
	got := reborn.Get("p")
	require.NotNil(t, got)
	assert.Equal(t, internal.PendingFailed, got.Status)
	assert.NotEmpty(t, got.Errors)
}

func TestStatusLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	l := openTest(t, path)
	require.NoError(t, l.Add(testOffer("x", internal.PendingReview, time.Now().UTC())))

	assert.Error(t, l.UpdateStatus("x", internal.PendingSent))
	require.NoError(t, l.UpdateStatus("x", internal.PendingProcessing))
	assert.Error(t, l.UpdateStatus("x", internal.PendingReview))
	require.NoError(t, l.UpdateStatus("x", internal.PendingFailed))

	assert.Error(t, l.UpdateStatus("x", internal.PendingProcessing))
	assert.Error(t, l.UpdateStatus("x", internal.PendingSent))
}

func TestGetAllNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	l := openTest(t, path)
	base := time.Now().UTC()
	require.NoError(t, l.Add(testOffer("first", internal.PendingReview, base)))
	require.NoError(t, l.Add(testOffer("second", internal.PendingReview, base.Add(time.Hour))))
	require.NoError(t, l.Add(testOffer("third", internal.PendingReview, base.Add(2*time.Hour))))

	all := l.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].ID)
	assert.Equal(t, "second", all[1].ID)
	assert.Equal(t, "first", all[2].ID)
}

func TestGetPendingFiltersStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	l := openTest(t, path)
	now := time.Now().UTC()
	require.NoError(t, l.Add(testOffer("a", internal.PendingReview, now)))
	require.NoError(t, l.Add(testOffer("b", internal.PendingReview, now)))
	require.NoError(t, l.UpdateStatus("b", internal.PendingProcessing))

	pending := l.GetPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)
}

func TestDeleteRemovesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	l := openTest(t, path)
	require.NoError(t, l.Add(testOffer("a", internal.PendingReview, time.Now().UTC())))
	require.NoError(t, l.Delete("a"))
	assert.Nil(t, l.Get("a"))
	assert.Error(t, l.Delete("a"))
}

func TestSnapshotLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_offers.json")
	l := openTest(t, path)
	require.NoError(t, l.Add(testOffer("a", internal.PendingReview, time.Now().UTC())))

	blob, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &snap))
	assert.Contains(t, snap, "offers")
	assert.Contains(t, snap, "last_updated")
}
