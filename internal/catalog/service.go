package catalog

import (
	"context"
	"fmt"

	"github.com/stocktrack/stocktrack/internal/shared"
)

// SKUPort mints product codes when the caller supplies none.
type SKUPort interface {
	Next(ctx context.Context) (string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  Repository
	sku   SKUPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, sku SKUPort, audit AuditPort) *Service {
	return &Service{repo: repo, sku: sku, audit: audit}
}

// ListProducts returns products matching filters plus the total count.
func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrValidation
	}
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct persists a product, minting a SKU when none supplied.
func (s *Service) CreateProduct(ctx context.Context, product Product, actorID int64) (Product, error) {
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	if product.SKU == "" {
		if s.sku == nil {
			return Product{}, ErrValidation
		}
		code, err := s.sku.Next(ctx)
		if err != nil {
			return Product{}, err
		}
		product.SKU = code
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "PRODUCT_CREATE", created.ID, map[string]any{"sku": created.SKU})
	return created, nil
}

// UpdateProduct edits everything except the SKU, which is immutable.
func (s *Service) UpdateProduct(ctx context.Context, id int64, product Product, actorID int64) error {
	if id <= 0 {
		return ErrValidation
	}
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, id, product); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PRODUCT_UPDATE", id, nil)
	return nil
}

// DeleteProduct removes the product and, by cascade, every serial number
// referencing it. There is no pre-flight warning; callers own the blast radius.
func (s *Service) DeleteProduct(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return ErrValidation
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PRODUCT_DELETE", id, nil)
	return nil
}

// ListCategories lists all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory persists a category.
func (s *Service) CreateCategory(ctx context.Context, category Category) (Category, error) {
	if err := validateCategory(category); err != nil {
		return Category{}, err
	}
	return s.repo.CreateCategory(ctx, category)
}

// ListLocations lists all storage locations.
func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	return s.repo.ListLocations(ctx)
}

// CreateLocation persists a storage location.
func (s *Service) CreateLocation(ctx context.Context, location Location) (Location, error) {
	if err := validateLocation(location); err != nil {
		return Location{}, err
	}
	return s.repo.CreateLocation(ctx, location)
}

// DeleteLocation removes a location unless serial numbers still reference it.
func (s *Service) DeleteLocation(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrValidation
	}
	return s.repo.DeleteLocation(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "catalog", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
