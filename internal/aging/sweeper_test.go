package aging

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stocktrack/stocktrack/internal/ledger"
	"github.com/stocktrack/stocktrack/internal/notify"
)

type fakeSweepLedger struct {
	serials map[int64]*ledger.SerialNumber
}

func (f *fakeSweepLedger) ListAgingSnapshot(context.Context) ([]ledger.SerialNumber, error) {
	var out []ledger.SerialNumber
	for _, sn := range f.serials {
		out = append(out, *sn)
	}
	return out, nil
}

func (f *fakeSweepLedger) UpdateAging(_ context.Context, id int64, aging ledger.AgingStatus, needsAttention bool) error {
	sn := f.serials[id]
	sn.AgingStatus = aging
	sn.NeedsAttention = needsAttention
	return nil
}

func (f *fakeSweepLedger) StampAlert(_ context.Context, id int64, at time.Time) error {
	stamp := at
	f.serials[id].LastAlertSent = &stamp
	return nil
}

type fakeAlertSink struct {
	sent []notify.Input
}

func (f *fakeAlertSink) Send(_ context.Context, in notify.Input) (notify.Notification, error) {
	f.sent = append(f.sent, in)
	return notify.Notification{}, nil
}

func sweepFixture(now time.Time) *fakeSweepLedger {
	return &fakeSweepLedger{serials: map[int64]*ledger.SerialNumber{
		1: {ID: 1, Serial: "SN-FRESH", ProductID: 1, Status: ledger.StatusInStock, InventoryDate: daysAgo(now, 5), AgingStatus: ledger.AgingFresh},
		2: {ID: 2, Serial: "SN-DRIFT", ProductID: 1, Status: ledger.StatusInStock, InventoryDate: daysAgo(now, 50), AgingStatus: ledger.AgingAging},
		3: {ID: 3, Serial: "SN-ALERT", ProductID: 2, Status: ledger.StatusInStock, InventoryDate: daysAgo(now, 38), AgingStatus: ledger.AgingAging},
		4: {ID: 4, Serial: "SN-GONE", ProductID: 2, Status: ledger.StatusOutOfStock, InventoryDate: daysAgo(now, 200), AgingStatus: ledger.AgingFresh},
	}}
}

func newTestSweeper(store *fakeSweepLedger, sink *fakeAlertSink, now time.Time) *Sweeper {
	s := NewSweeper(slog.New(slog.NewTextHandler(io.Discard, nil)), store, sink)
	s.now = func() time.Time { return now }
	return s
}

func TestSweepRewritesDriftedBuckets(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	store := sweepFixture(now)
	sink := &fakeAlertSink{}

	report, err := newTestSweeper(store, sink, now).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, report.Scanned)
	require.Equal(t, 1, report.Updated)

	require.Equal(t, ledger.AgingStale, store.serials[2].AgingStatus)
	require.True(t, store.serials[2].NeedsAttention)
	// Units no longer in stock keep their last bucket.
	require.Equal(t, ledger.AgingFresh, store.serials[4].AgingStatus)
}

func TestSweepAlertsAndStamps(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	store := sweepFixture(now)
	sink := &fakeAlertSink{}

	report, err := newTestSweeper(store, sink, now).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Alerted)
	require.Len(t, sink.sent, 1)
	require.Equal(t, notify.TypeStockAlert, sink.sent[0].Type)
	require.NotNil(t, store.serials[3].LastAlertSent)
}

func TestSweepIsIdempotentWithinCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	store := sweepFixture(now)
	sink := &fakeAlertSink{}
	sweeper := newTestSweeper(store, sink, now)

	_, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	again, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, again.Updated)
	require.Zero(t, again.Alerted)
	require.Len(t, sink.sent, 1)
}
