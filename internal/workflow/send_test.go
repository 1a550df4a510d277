package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"offerflow/internal"
)

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) DispatchOffer(_ context.Context, _ *internal.PendingOffer, _ *Context) error {
	f.calls++
	return f.err
}

func runToPending(t *testing.T, f *fixture, registry *Registry) string {
	t.Helper()
	wc, err := f.engine.Run(context.Background(), requestMessage())
	require.NoError(t, err)
	registry.Retain(wc)
	return wc.PendingID
}

func TestApproveMovesPendingToSent(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry()
	dispatcher := &fakeDispatcher{}
	svc := NewSendService(f.ledger, registry, f.engine.creator, dispatcher, zap.NewNop())
	id := runToPending(t, f, registry)

	require.NoError(t, svc.Approve(context.Background(), id))

	record := f.ledger.Get(id)
	require.NotNil(t, record)
	assert.Equal(t, internal.PendingSent, record.Status)
	assert.Equal(t, 1, dispatcher.calls)

	_, retained := registry.Get(id)
	assert.False(t, retained)
}

func TestApproveWithLostContextFailsRecord(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry()
	svc := NewSendService(f.ledger, registry, f.engine.creator, nil, zap.NewNop())
	id := runToPending(t, f, registry)

	// Simulate a restart: the ledger file survived, the context did not.
	registry.Drop(id)

	err := svc.Approve(context.Background(), id)
	require.Error(t, err)

	record := f.ledger.Get(id)
	require.NotNil(t, record)
	assert.Equal(t, internal.PendingFailed, record.Status)
	assert.NotEmpty(t, record.Errors)
}

func TestApproveRejectsNonPendingRecord(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry()
	svc := NewSendService(f.ledger, registry, f.engine.creator, nil, zap.NewNop())
	id := runToPending(t, f, registry)

	require.NoError(t, svc.Approve(context.Background(), id))
	err := svc.Approve(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only pending offers")
}

func TestApproveUnknownIDFails(t *testing.T) {
	f := newFixture(t)
	svc := NewSendService(f.ledger, NewRegistry(), f.engine.creator, nil, zap.NewNop())

	err := svc.Approve(context.Background(), "nope")
	require.Error(t, err)
}

func TestApproveDispatchFailureFailsRecord(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry()
	dispatcher := &fakeDispatcher{err: errors.New("smtp down")}
	svc := NewSendService(f.ledger, registry, f.engine.creator, dispatcher, zap.NewNop())
	id := runToPending(t, f, registry)

	err := svc.Approve(context.Background(), id)
	require.Error(t, err)

	record := f.ledger.Get(id)
	assert.Equal(t, internal.PendingFailed, record.Status)
}

func TestApproveCreatesOfferWhenNoneExistsYet(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry()
	svc := NewSendService(f.ledger, registry, f.engine.creator, nil, zap.NewNop())
	id := runToPending(t, f, registry)

	// Strip the back-office record so approval has to create it.
	wc, ok := registry.Get(id)
	require.True(t, ok)
	wc.CreateResult = nil
	wc.Offer.Number = ""

	require.NoError(t, svc.Approve(context.Background(), id))

	record := f.ledger.Get(id)
	assert.Equal(t, internal.PendingSent, record.Status)
	assert.NotEmpty(t, record.OfferNumber)
	assert.NotEmpty(t, wc.OfferNumber())
}

func TestRejectDeletesRecordAndContext(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry()
	svc := NewSendService(f.ledger, registry, f.engine.creator, nil, zap.NewNop())
	id := runToPending(t, f, registry)

	require.NoError(t, svc.Reject(id))
	assert.Nil(t, f.ledger.Get(id))
	_, retained := registry.Get(id)
	assert.False(t, retained)
}

func TestRejectUnknownIDFails(t *testing.T) {
	f := newFixture(t)
	svc := NewSendService(f.ledger, NewRegistry(), f.engine.creator, nil, zap.NewNop())
	require.Error(t, svc.Reject("nope"))
}
