package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stocktrack/stocktrack/internal/ledger"
)

func daysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

func TestClassifyBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		days int
		want ledger.AgingStatus
	}{
		{0, ledger.AgingFresh},
		{30, ledger.AgingFresh},
		{31, ledger.AgingAging},
		{44, ledger.AgingAging},
		{45, ledger.AgingStale},
		{89, ledger.AgingStale},
		{90, ledger.AgingDeadStock},
		{400, ledger.AgingDeadStock},
	}
	for _, tc := range cases {
		got := Classify(daysAgo(now, tc.days), now)
		require.Equal(t, tc.want, got, "day %d", tc.days)
	}
}

func TestClassifyFutureInventoryDate(t *testing.T) {
	now := time.Now()
	require.Equal(t, ledger.AgingFresh, Classify(now.Add(time.Hour), now))
}

func TestNeedsAttention(t *testing.T) {
	require.False(t, NeedsAttention(ledger.AgingFresh))
	require.False(t, NeedsAttention(ledger.AgingAging))
	require.True(t, NeedsAttention(ledger.AgingStale))
	require.True(t, NeedsAttention(ledger.AgingDeadStock))
}

func TestShouldAlertOnlyOnAlertDays(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	for _, days := range []int{37, 39, 43, 45, 90} {
		require.False(t, ShouldAlert(daysAgo(now, days), nil, now), "day %d", days)
	}
	require.True(t, ShouldAlert(daysAgo(now, 38), nil, now))
	require.True(t, ShouldAlert(daysAgo(now, 44), nil, now))
}

func TestShouldAlertHonoursCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	inventory := daysAgo(now, 38)

	recent := now.Add(-2 * time.Hour)
	require.False(t, ShouldAlert(inventory, &recent, now))

	old := now.Add(-25 * time.Hour)
	require.True(t, ShouldAlert(inventory, &old, now))
}
