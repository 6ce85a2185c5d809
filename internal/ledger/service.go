package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stocktrack/stocktrack/internal/shared"
)

// RepositoryPort describes the persistence surface the service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (SerialNumber, error)
	ListByProduct(ctx context.Context, productID int64) ([]SerialNumber, error)
	ListAvailable(ctx context.Context, productID int64) ([]SerialNumber, error)
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context, productID int64) (map[Status]int, error)
	CountByAging(ctx context.Context, productID int64) (map[AgingStatus]int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates serial number lifecycle operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateInput carries the fields callers may set when registering a unit.
// Status is optional and defaults to IN_STOCK; units received damaged or
// still in transit register under their real status.
type CreateInput struct {
	Serial     string
	ProductID  int64
	Status     Status
	LocationID *int64
	Notes      string
}

// Create registers a single unit. The serial must be globally unique.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (SerialNumber, error) {
	in.Serial = strings.TrimSpace(in.Serial)
	if in.Serial == "" || in.ProductID <= 0 {
		return SerialNumber{}, ErrValidation
	}
	status, ok := initialStatus(in.Status)
	if !ok {
		return SerialNumber{}, ErrValidation
	}
	in.Status = status
	var created SerialNumber
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.Insert(ctx, s.freshUnit(in))
		return err
	})
	if err != nil {
		return SerialNumber{}, err
	}
	s.recordAudit(ctx, actorID, "SERIAL_CREATE", created.ID, map[string]any{"serial": created.Serial})
	return created, nil
}

// BulkCreateInput carries a batch registration. All units in the batch share
// one product, status and location.
type BulkCreateInput struct {
	ProductID  int64
	Serials    []string
	Status     Status
	LocationID *int64
}

// BulkCreate registers up to MaxBulkSize units in one transaction. Serials
// already registered are skipped, not failed; nothing is written when the
// batch exceeds the cap.
func (s *Service) BulkCreate(ctx context.Context, in BulkCreateInput, actorID int64) (BulkResult, error) {
	if len(in.Serials) > MaxBulkSize {
		return BulkResult{}, ErrBatchTooLarge
	}
	if in.ProductID <= 0 {
		return BulkResult{}, ErrValidation
	}
	status, ok := initialStatus(in.Status)
	if !ok {
		return BulkResult{}, ErrValidation
	}
	cleaned := make([]string, 0, len(in.Serials))
	seen := map[string]bool{}
	result := BulkResult{Skipped: []string{}}
	for _, raw := range in.Serials {
		serial := strings.TrimSpace(raw)
		if serial == "" {
			continue
		}
		if seen[serial] {
			result.Skipped = append(result.Skipped, serial)
			continue
		}
		seen[serial] = true
		cleaned = append(cleaned, serial)
	}
	if len(cleaned) == 0 {
		return result, nil
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, serial := range cleaned {
			created, skipped, err := tx.InsertSkipDuplicate(ctx, s.freshUnit(CreateInput{Serial: serial, ProductID: in.ProductID, Status: status, LocationID: in.LocationID}))
			if err != nil {
				return err
			}
			if skipped {
				result.Skipped = append(result.Skipped, serial)
				continue
			}
			result.Created = append(result.Created, created)
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}
	s.recordAudit(ctx, actorID, "SERIAL_BULK_CREATE", in.ProductID, map[string]any{"created": len(result.Created), "skipped": len(result.Skipped)})
	return result, nil
}

// Get fetches one unit.
func (s *Service) Get(ctx context.Context, id int64) (SerialNumber, error) {
	return s.repo.Get(ctx, id)
}

// ListByProduct lists every unit of a product.
func (s *Service) ListByProduct(ctx context.Context, productID int64) ([]SerialNumber, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// ListAvailable lists IN_STOCK units of a product, serial ascending.
func (s *Service) ListAvailable(ctx context.Context, productID int64) ([]SerialNumber, error) {
	return s.repo.ListAvailable(ctx, productID)
}

// UpdateStatusInput carries the optional fields of a status update.
type UpdateStatusInput struct {
	Status     Status
	LocationID *int64
	Notes      *string
}

// UpdateStatus overwrites the unit's status. Re-entering IN_STOCK restarts
// the aging clock: inventory date resets and the unit is FRESH again.
func (s *Service) UpdateStatus(ctx context.Context, id int64, in UpdateStatusInput, actorID int64) (SerialNumber, error) {
	if !in.Status.Valid() {
		return SerialNumber{}, ErrValidation
	}
	var updated SerialNumber
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sn, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Status == StatusInStock && sn.Status != StatusInStock {
			sn.InventoryDate = s.now()
			sn.AgingStatus = AgingFresh
			sn.NeedsAttention = false
			sn.LastAlertSent = nil
		}
		sn.Status = in.Status
		if in.LocationID != nil {
			sn.LocationID = in.LocationID
		}
		if in.Notes != nil {
			sn.Notes = *in.Notes
		}
		if err := tx.Update(ctx, sn); err != nil {
			return err
		}
		updated = sn
		return nil
	})
	if err != nil {
		return SerialNumber{}, err
	}
	s.recordAudit(ctx, actorID, "SERIAL_STATUS", id, map[string]any{"status": string(in.Status)})
	return updated, nil
}

// Delete removes the unit permanently.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "SERIAL_DELETE", id, nil)
	return nil
}

// ProductOverview fetches status and aging counts for one product
// concurrently.
func (s *Service) ProductOverview(ctx context.Context, productID int64) (Overview, error) {
	overview := Overview{ProductID: productID}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.repo.CountByStatus(ctx, productID)
		if err != nil {
			return err
		}
		overview.StatusCounts = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.CountByAging(ctx, productID)
		if err != nil {
			return err
		}
		overview.AgingCounts = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return overview, nil
}

func (s *Service) freshUnit(in CreateInput) SerialNumber {
	return SerialNumber{
		Serial:        strings.TrimSpace(in.Serial),
		ProductID:     in.ProductID,
		Status:        in.Status,
		LocationID:    in.LocationID,
		Notes:         in.Notes,
		InventoryDate: s.now(),
		AgingStatus:   AgingFresh,
	}
}

// initialStatus resolves the registration status, defaulting to IN_STOCK.
func initialStatus(s Status) (Status, bool) {
	if s == "" {
		return StatusInStock, true
	}
	return s, s.Valid()
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "serial_number", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
