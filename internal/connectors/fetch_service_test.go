package connectors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/storage"
)

type fakeConnector struct {
	inbox    []internal.FetchedMailMessage
	consumed []string
}

func (f *fakeConnector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	return f.inbox, nil
}

func (f *fakeConnector) MarkConsumed(ctx context.Context, messageID string) error {
	f.consumed = append(f.consumed, messageID)
	return nil
}

func rawMessage() []byte {
	return []byte("From: Anna Berg <anna@nordicpower.example>\r\n" +
		"Subject: Quote request\r\n" +
		"Date: Mon, 02 Jun 2025 10:00:00 +0000\r\n" +
		"\r\n" +
		"Power cable 3x25, 100 m\r\n")
}

func testSetup(t *testing.T) (*storage.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, filepath.Join(dir, "raw")
}

func fetched(id string) internal.FetchedMailMessage {
	return internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  id,
		Subject:    "Quote request",
		From:       "Anna Berg <anna@nordicpower.example>",
		ReceivedAt: "2025-06-02T10:00:00Z",
		Raw:        rawMessage(),
	}
}

func TestFetchAndStoreArchivesRaw(t *testing.T) {
	db, rawDir := testSetup(t)
	conn := &fakeConnector{inbox: []internal.FetchedMailMessage{fetched("<m1@example>")}}
	svc := NewFetchService(db, rawDir, conn, zap.NewNop())

	result, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Stored)

	sum := sha256.Sum256(rawMessage())
	rawPath := filepath.Join(rawDir, hex.EncodeToString(sum[:])+".eml")
	_, err = os.Stat(rawPath)
	require.NoError(t, err)

	row, err := db.GetMessageByProviderID("imap", "<m1@example>")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "fetched", row.Status)
	assert.Equal(t, rawPath, row.RawRef)
}

func TestFetchAndStoreIsIdempotent(t *testing.T) {
	db, rawDir := testSetup(t)
	conn := &fakeConnector{inbox: []internal.FetchedMailMessage{fetched("<m1@example>")}}
	svc := NewFetchService(db, rawDir, conn, zap.NewNop())

	_, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	_, err = svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)

	rows, err := db.ListMessagesByStatus("fetched", 100)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLoadPendingDecodesStoredMessages(t *testing.T) {
	db, rawDir := testSetup(t)
	conn := &fakeConnector{inbox: []internal.FetchedMailMessage{fetched("<m1@example>")}}
	svc := NewFetchService(db, rawDir, conn, zap.NewNop())

	_, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)

	msgs, err := svc.LoadPending("imap", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "imap", msgs[0].Provider)
	assert.Equal(t, "<m1@example>", msgs[0].ProviderID)
	assert.Equal(t, "Quote request", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Power cable 3x25")

	other, err := svc.LoadPending("gmail", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLoadPendingFailsMessagesWithMissingRaw(t *testing.T) {
	db, rawDir := testSetup(t)
	conn := &fakeConnector{inbox: []internal.FetchedMailMessage{fetched("<m1@example>")}}
	svc := NewFetchService(db, rawDir, conn, zap.NewNop())

	_, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(rawDir))

	msgs, err := svc.LoadPending("imap", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	row, err := db.GetMessageByProviderID("imap", "<m1@example>")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "failed", row.Status)
}

func TestSourceConsumerMarksSourceThenLocal(t *testing.T) {
	db, rawDir := testSetup(t)
	conn := &fakeConnector{inbox: []internal.FetchedMailMessage{fetched("<m1@example>")}}
	svc := NewFetchService(db, rawDir, conn, zap.NewNop())

	_, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)

	consumer := NewSourceConsumer(db, map[string]MailConnector{"imap": conn}, zap.NewNop())
	msg := &internal.InboundMessage{Provider: "imap", ProviderID: "<m1@example>"}
	require.NoError(t, consumer.MarkConsumed(context.Background(), msg))

	assert.Equal(t, []string{"<m1@example>"}, conn.consumed)
	row, err := db.GetMessageByProviderID("imap", "<m1@example>")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "consumed", row.Status)
}

func TestSourceConsumerRejectsUnknownProvider(t *testing.T) {
	db, _ := testSetup(t)
	consumer := NewSourceConsumer(db, map[string]MailConnector{}, zap.NewNop())

	err := consumer.MarkConsumed(context.Background(), &internal.InboundMessage{Provider: "gmail", ProviderID: "x"})
	assert.Error(t, err)
}

func TestBuildMIMERoundTrips(t *testing.T) {
	att := internal.Attachment{
		FileName: "offer.xlsx",
		Content:  []byte{0x50, 0x4b, 0x03, 0x04},
		MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	raw, err := BuildMIME("offers@vendor.example", "anna@nordicpower.example", "Your offer", "Hello,\n\nSee attached.\n", []internal.Attachment{att})
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, "offers@vendor.example")
	assert.Contains(t, text, "anna@nordicpower.example")
	assert.Contains(t, text, "Your offer")
	assert.Contains(t, text, "offer.xlsx")
}
