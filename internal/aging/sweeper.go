package aging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stocktrack/stocktrack/internal/ledger"
	"github.com/stocktrack/stocktrack/internal/notify"
	"github.com/stocktrack/stocktrack/internal/shared"
)

// LedgerPort is the slice of the ledger the sweeper needs.
type LedgerPort interface {
	ListAgingSnapshot(ctx context.Context) ([]ledger.SerialNumber, error)
	UpdateAging(ctx context.Context, id int64, aging ledger.AgingStatus, needsAttention bool) error
	StampAlert(ctx context.Context, id int64, at time.Time) error
}

// NotifierPort fans stock alerts out to admins.
type NotifierPort interface {
	Send(ctx context.Context, in notify.Input) (notify.Notification, error)
}

// Report summarizes one sweep.
type Report struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Alerted int `json:"alerted"`
}

// Sweeper recomputes aging buckets across the whole ledger. It is idempotent:
// rerunning within the alert cooldown updates nothing and alerts nobody twice.
type Sweeper struct {
	logger   *slog.Logger
	ledger   LedgerPort
	notifier NotifierPort
	now      func() time.Time
}

// NewSweeper builds Sweeper. notifier may be nil; alerts are then skipped.
func NewSweeper(logger *slog.Logger, ledgerPort LedgerPort, notifier NotifierPort) *Sweeper {
	return &Sweeper{logger: logger, ledger: ledgerPort, notifier: notifier, now: time.Now}
}

// Run scans every tracked unit, rewrites drifted aging fields and alerts
// admins for units in the alert window. Only units sitting IN_STOCK age;
// everything else keeps its last computed bucket.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	serials, err := s.ledger.ListAgingSnapshot(ctx)
	if err != nil {
		return Report{}, err
	}
	now := s.now()
	report := Report{Scanned: len(serials)}

	for _, sn := range serials {
		if sn.Status != ledger.StatusInStock {
			continue
		}
		status := Classify(sn.InventoryDate, now)
		attention := NeedsAttention(status)
		if status != sn.AgingStatus || attention != sn.NeedsAttention {
			if err := s.ledger.UpdateAging(ctx, sn.ID, status, attention); err != nil {
				s.logger.Error("update aging", slog.Int64("serial_id", sn.ID), slog.Any("error", err))
				continue
			}
			report.Updated++
		}
		if s.notifier != nil && ShouldAlert(sn.InventoryDate, sn.LastAlertSent, now) {
			if err := s.alert(ctx, sn, now); err != nil {
				s.logger.Error("send aging alert", slog.Int64("serial_id", sn.ID), slog.Any("error", err))
				continue
			}
			report.Alerted++
		}
	}

	s.logger.Info("aging sweep finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("updated", report.Updated),
		slog.Int("alerted", report.Alerted))
	return report, nil
}

func (s *Sweeper) alert(ctx context.Context, sn ledger.SerialNumber, now time.Time) error {
	days := DaysInStock(sn.InventoryDate, now)
	_, err := s.notifier.Send(ctx, notify.Input{
		Title:      "Stock aging alert",
		Message:    fmt.Sprintf("Unit %s has been in stock for %d days.", sn.Serial, days),
		Type:       notify.TypeStockAlert,
		ProductID:  &sn.ProductID,
		Recipients: notify.AllWithRole(shared.RoleAdmin),
	})
	if err != nil {
		return err
	}
	return s.ledger.StampAlert(ctx, sn.ID, now)
}
