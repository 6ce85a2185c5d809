package aging

import (
	"time"

	"github.com/stocktrack/stocktrack/internal/ledger"
)

// Day boundaries for the aging buckets, in whole days since the inventory
// date.
const (
	agingAfterDays = 31
	staleAfterDays = 45
	deadAfterDays  = 90
)

// Alert days inside the AGING window. Day 44 is the last day before the unit
// turns STALE.
const (
	firstAlertDay = 38
	finalAlertDay = 44
)

const alertCooldown = 24 * time.Hour

// DaysInStock returns whole days elapsed since the inventory date.
func DaysInStock(inventoryDate, now time.Time) int {
	if now.Before(inventoryDate) {
		return 0
	}
	return int(now.Sub(inventoryDate).Hours() / 24)
}

// Classify buckets a unit by how long it has sat in stock.
func Classify(inventoryDate, now time.Time) ledger.AgingStatus {
	days := DaysInStock(inventoryDate, now)
	switch {
	case days >= deadAfterDays:
		return ledger.AgingDeadStock
	case days >= staleAfterDays:
		return ledger.AgingStale
	case days >= agingAfterDays:
		return ledger.AgingAging
	}
	return ledger.AgingFresh
}

// NeedsAttention reports whether the bucket warrants operator attention.
func NeedsAttention(status ledger.AgingStatus) bool {
	return status == ledger.AgingStale || status == ledger.AgingDeadStock
}

// ShouldAlert reports whether a stock alert is due for the unit: only on the
// two alert days of the AGING window, and at most once per cooldown.
func ShouldAlert(inventoryDate time.Time, lastAlertSent *time.Time, now time.Time) bool {
	days := DaysInStock(inventoryDate, now)
	if days != firstAlertDay && days != finalAlertDay {
		return false
	}
	if Classify(inventoryDate, now) != ledger.AgingAging {
		return false
	}
	if lastAlertSent != nil && now.Sub(*lastAlertSent) < alertCooldown {
		return false
	}
	return true
}
