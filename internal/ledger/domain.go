package ledger

import (
	"errors"
	"time"
)

// Status tracks where a physical unit is in its lifecycle.
type Status string

const (
	StatusInStock    Status = "IN_STOCK"
	StatusOutOfStock Status = "OUT_OF_STOCK"
	StatusReserved   Status = "RESERVED"
	StatusInTransit  Status = "IN_TRANSIT"
	StatusDamaged    Status = "DAMAGED"
	StatusLost       Status = "LOST"
)

// Valid reports whether s is a known unit status.
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusOutOfStock, StatusReserved, StatusInTransit, StatusDamaged, StatusLost:
		return true
	}
	return false
}

// AgingStatus buckets a unit by how long it has sat in stock.
type AgingStatus string

const (
	AgingFresh     AgingStatus = "FRESH"
	AgingAging     AgingStatus = "AGING"
	AgingStale     AgingStatus = "STALE"
	AgingDeadStock AgingStatus = "DEAD_STOCK"
)

// SerialNumber is one tracked physical unit.
type SerialNumber struct {
	ID             int64       `json:"id"`
	Serial         string      `json:"serial"`
	ProductID      int64       `json:"product_id"`
	Status         Status      `json:"status"`
	LocationID     *int64      `json:"location_id,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	InventoryDate  time.Time   `json:"inventory_date"`
	AgingStatus    AgingStatus `json:"aging_status"`
	NeedsAttention bool        `json:"needs_attention"`
	LastAlertSent  *time.Time  `json:"last_alert_sent,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// BulkResult reports the outcome of a bulk registration.
type BulkResult struct {
	Created []SerialNumber `json:"created"`
	Skipped []string       `json:"skipped"`
}

// Overview aggregates a product's ledger for dashboards.
type Overview struct {
	ProductID    int64               `json:"product_id"`
	StatusCounts map[Status]int      `json:"status_counts"`
	AgingCounts  map[AgingStatus]int `json:"aging_counts"`
}

// MaxBulkSize caps one bulk registration call.
const MaxBulkSize = 100

var (
	ErrNotFound        = errors.New("ledger: serial number not found")
	ErrDuplicateSerial = errors.New("ledger: serial already registered")
	ErrBatchTooLarge   = errors.New("ledger: bulk batch exceeds limit")
	ErrValidation      = errors.New("ledger: invalid input")
	ErrProductNotFound = errors.New("ledger: product not found")
)
