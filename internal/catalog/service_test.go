package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocktrack/stocktrack/internal/shared"
)

type fakeRepo struct {
	products   map[int64]Product
	categories []Category
	locations  []Location
	nextID     int64
	usedLoc    map[int64]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[int64]Product{}, usedLoc: map[int64]bool{}}
}

func (f *fakeRepo) ListProducts(_ context.Context, _ ListFilters) ([]Product, int, error) {
	out := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) CreateProduct(_ context.Context, product Product) (Product, error) {
	for _, existing := range f.products {
		if existing.SKU == product.SKU {
			return Product{}, ErrDuplicateSKU
		}
	}
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, id int64, product Product) error {
	existing, ok := f.products[id]
	if !ok {
		return ErrNotFound
	}
	product.ID = id
	product.SKU = existing.SKU
	f.products[id] = product
	return nil
}

func (f *fakeRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeRepo) ListCategories(_ context.Context) ([]Category, error) { return f.categories, nil }

func (f *fakeRepo) CreateCategory(_ context.Context, category Category) (Category, error) {
	f.nextID++
	category.ID = f.nextID
	f.categories = append(f.categories, category)
	return category, nil
}

func (f *fakeRepo) ListLocations(_ context.Context) ([]Location, error) { return f.locations, nil }

func (f *fakeRepo) CreateLocation(_ context.Context, location Location) (Location, error) {
	f.nextID++
	location.ID = f.nextID
	f.locations = append(f.locations, location)
	return location, nil
}

func (f *fakeRepo) DeleteLocation(_ context.Context, id int64) error {
	if f.usedLoc[id] {
		return ErrLocationInUse
	}
	for i, l := range f.locations {
		if l.ID == id {
			f.locations = append(f.locations[:i], f.locations[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

type fakeSKU struct {
	calls int
	fail  bool
}

func (f *fakeSKU) Next(context.Context) (string, error) {
	if f.fail {
		return "", fmt.Errorf("sku store down")
	}
	f.calls++
	return fmt.Sprintf("SKU-%05d", f.calls), nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, shared.AuditLog) error { return nil }

func TestCreateProductMintsSKUWhenEmpty(t *testing.T) {
	repo := newFakeRepo()
	minter := &fakeSKU{}
	svc := NewService(repo, minter, noopAudit{})

	created, err := svc.CreateProduct(context.Background(), Product{Name: "Widget", Price: 10}, 1)
	require.NoError(t, err)
	require.Equal(t, "SKU-00001", created.SKU)
	require.Equal(t, 1, minter.calls)
}

func TestCreateProductKeepsSuppliedSKU(t *testing.T) {
	repo := newFakeRepo()
	minter := &fakeSKU{}
	svc := NewService(repo, minter, noopAudit{})

	created, err := svc.CreateProduct(context.Background(), Product{SKU: "CUSTOM-1", Name: "Widget"}, 1)
	require.NoError(t, err)
	require.Equal(t, "CUSTOM-1", created.SKU)
	require.Zero(t, minter.calls)
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSKU{}, noopAudit{})

	_, err := svc.CreateProduct(context.Background(), Product{SKU: "DUP-1", Name: "First"}, 1)
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), Product{SKU: "DUP-1", Name: "Second"}, 1)
	require.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestUpdateProductPreservesSKU(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSKU{}, noopAudit{})

	created, err := svc.CreateProduct(context.Background(), Product{Name: "Widget"}, 1)
	require.NoError(t, err)

	err = svc.UpdateProduct(context.Background(), created.ID, Product{SKU: "HACKED", Name: "Renamed"}, 1)
	require.NoError(t, err)

	got, err := svc.GetProduct(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.SKU, got.SKU)
	require.Equal(t, "Renamed", got.Name)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeSKU{}, noopAudit{})

	_, err := svc.CreateProduct(context.Background(), Product{Name: "  "}, 1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(context.Background(), Product{Name: "Widget", Price: -1}, 1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeleteLocationInUse(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSKU{}, noopAudit{})

	loc, err := svc.CreateLocation(context.Background(), Location{Code: "WH-A", Name: "Warehouse A"})
	require.NoError(t, err)
	repo.usedLoc[loc.ID] = true

	err = svc.DeleteLocation(context.Background(), loc.ID)
	require.ErrorIs(t, err, ErrLocationInUse)
}
