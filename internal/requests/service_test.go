package requests

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocktrack/stocktrack/internal/notify"
	"github.com/stocktrack/stocktrack/internal/shared"
)

type fakeSerial struct {
	ID        int64
	Serial    string
	ProductID int64
	Status    string
}

type fakeWorkflowRepo struct {
	products map[int64]bool
	serials  map[int64]*fakeSerial
	requests map[int64]StockRequest
	nextID   int64
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{products: map[int64]bool{}, serials: map[int64]*fakeSerial{}, requests: map[int64]StockRequest{}}
}

func (f *fakeWorkflowRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]StockRequest, len(f.requests))
	for k, v := range f.requests {
		snapshot[k] = v
	}
	serialSnapshot := make(map[int64]fakeSerial, len(f.serials))
	for k, v := range f.serials {
		serialSnapshot[k] = *v
	}
	if err := fn(ctx, f); err != nil {
		f.requests = snapshot
		for k, v := range serialSnapshot {
			copied := v
			f.serials[k] = &copied
		}
		return err
	}
	return nil
}

func (f *fakeWorkflowRepo) ProductExists(_ context.Context, productID int64) (bool, error) {
	return f.products[productID], nil
}

func (f *fakeWorkflowRepo) LockSerials(_ context.Context, ids []int64) ([]LockedSerial, error) {
	var out []LockedSerial
	for _, id := range ids {
		if s, ok := f.serials[id]; ok {
			out = append(out, LockedSerial{ID: s.ID, Serial: s.Serial, ProductID: s.ProductID, Status: s.Status})
		}
	}
	return out, nil
}

func (f *fakeWorkflowRepo) InsertRequest(_ context.Context, req StockRequest) (StockRequest, error) {
	if req.SerialNumberID != nil {
		for _, existing := range f.requests {
			if existing.SerialNumberID != nil && *existing.SerialNumberID == *req.SerialNumberID && existing.Status == StatusPending {
				return StockRequest{}, ErrUnavailableSerials
			}
		}
	}
	f.nextID++
	req.ID = f.nextID
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeWorkflowRepo) GetRequestForUpdate(_ context.Context, id int64) (StockRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return StockRequest{}, ErrNotFound
	}
	return req, nil
}

func (f *fakeWorkflowRepo) UpdateRequest(_ context.Context, req StockRequest) error {
	if _, ok := f.requests[req.ID]; !ok {
		return ErrNotFound
	}
	f.requests[req.ID] = req
	return nil
}

func (f *fakeWorkflowRepo) ClaimSerialOut(_ context.Context, serialID int64) (bool, error) {
	s, ok := f.serials[serialID]
	if !ok || s.Status != "IN_STOCK" {
		return false, nil
	}
	s.Status = "OUT_OF_STOCK"
	return true, nil
}

func (f *fakeWorkflowRepo) Get(_ context.Context, id int64) (StockRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return StockRequest{}, ErrNotFound
	}
	return req, nil
}

func (f *fakeWorkflowRepo) ListForUser(_ context.Context, userID int64) ([]StockRequest, error) {
	var out []StockRequest
	for _, req := range f.requests {
		if req.RequesterID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeWorkflowRepo) ListPending(_ context.Context) ([]StockRequest, error) {
	var out []StockRequest
	for _, req := range f.requests {
		if req.Status == StatusPending {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeWorkflowRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.requests[id]; !ok {
		return ErrNotFound
	}
	delete(f.requests, id)
	return nil
}

type fakeNotifier struct {
	sent []notify.Input
}

func (f *fakeNotifier) Send(_ context.Context, in notify.Input) (notify.Notification, error) {
	f.sent = append(f.sent, in)
	return notify.Notification{ID: int64(len(f.sent))}, nil
}

type fakeApprovals struct {
	logs []shared.ApprovalLog
}

func (f *fakeApprovals) Record(_ context.Context, log shared.ApprovalLog) error {
	log.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeApprovals) List(_ context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range f.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

func workflowService(repo *fakeWorkflowRepo, notifier *fakeNotifier) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, notifier, nil, nil, nil)
}

func seedRepo() *fakeWorkflowRepo {
	repo := newFakeWorkflowRepo()
	repo.products[1] = true
	repo.serials[10] = &fakeSerial{ID: 10, Serial: "SN-A", ProductID: 1, Status: "IN_STOCK"}
	repo.serials[11] = &fakeSerial{ID: 11, Serial: "SN-B", ProductID: 1, Status: "IN_STOCK"}
	repo.serials[12] = &fakeSerial{ID: 12, Serial: "SN-C", ProductID: 1, Status: "OUT_OF_STOCK"}
	return repo
}

func TestCreateBindsOneRequestPerSerial(t *testing.T) {
	repo := seedRepo()
	notifier := &fakeNotifier{}
	svc := workflowService(repo, notifier)

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10, 11}})
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, req := range created {
		require.Equal(t, StatusPending, req.Status)
		require.Equal(t, 1, req.Quantity)
		require.NotNil(t, req.SerialNumberID)
	}
	// Submitting must not move the units; the claim is the PENDING request.
	require.Equal(t, "IN_STOCK", repo.serials[10].Status)
	require.Equal(t, "IN_STOCK", repo.serials[11].Status)
	require.Len(t, notifier.sent, 1)
}

func TestCreateAllOrNothingOnUnavailableSerial(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	_, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10, 12}})
	require.ErrorIs(t, err, ErrUnavailableSerials)
	require.Empty(t, repo.requests)
}

func TestCreateRejectsSecondPendingClaim(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	_, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 6, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10, 11}})
	require.ErrorIs(t, err, ErrUnavailableSerials)
	require.Len(t, repo.requests, 1)
}

func TestCreateUnknownProduct(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	_, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 99})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestCreateUnboundDefaultsQuantity(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Nil(t, created[0].SerialNumberID)
	require.Equal(t, 1, created[0].Quantity)
}

func TestApproveMovesUnitOutOfStock(t *testing.T) {
	repo := seedRepo()
	notifier := &fakeNotifier{}
	svc := workflowService(repo, notifier)

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), created[0].ID, 2, "ok")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, int64(2), *approved.ApproverID)
	require.Equal(t, "OUT_OF_STOCK", repo.serials[10].Status)
	// submit fan-out + requester update
	require.Len(t, notifier.sent, 2)
}

func TestApproveNonPending(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), created[0].ID, 2, "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), created[0].ID, 2, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveFailsWhenUnitAlreadyGone(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)

	repo.serials[10].Status = "DAMAGED"
	_, err = svc.Approve(context.Background(), created[0].ID, 2, "")
	require.ErrorIs(t, err, ErrUnavailableSerials)
	require.Equal(t, StatusPending, repo.requests[created[0].ID].Status)
}

func TestRejectRequiresReason(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), created[0].ID, 2, "   ")
	require.ErrorIs(t, err, ErrMissingReason)
}

func TestRejectLeavesUnitInStock(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}, Notes: "urgent"})
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), created[0].ID, 2, "no budget")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "urgent\nRejected: no budget", rejected.Notes)
	require.Equal(t, "IN_STOCK", repo.serials[10].Status)
}

func TestUpdateStatusOnlyCompletesApproved(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)

	requester := shared.Identity{UserID: 5, Role: shared.RoleStaff}
	_, err = svc.UpdateStatus(context.Background(), created[0].ID, StatusCompleted, requester)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Approve(context.Background(), created[0].ID, 2, "")
	require.NoError(t, err)

	completed, err := svc.UpdateStatus(context.Background(), created[0].ID, StatusCompleted, requester)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	_, err = svc.UpdateStatus(context.Background(), created[0].ID, StatusPending, requester)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateStatusRequiresRequesterOrAdmin(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), created[0].ID, 2, "")
	require.NoError(t, err)

	// Another staff member cannot complete someone else's request.
	_, err = svc.UpdateStatus(context.Background(), created[0].ID, StatusCompleted, shared.Identity{UserID: 7, Role: shared.RoleStaff})
	require.ErrorIs(t, err, ErrForbidden)
	require.Equal(t, StatusApproved, repo.requests[created[0].ID].Status)

	completed, err := svc.UpdateStatus(context.Background(), created[0].ID, StatusCompleted, shared.Identity{UserID: 7, Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
}

func TestHistoryTracksWorkflowActions(t *testing.T) {
	repo := seedRepo()
	approvals := &fakeApprovals{}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, &fakeNotifier{}, approvals, nil, nil)

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}, Notes: "urgent"})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), created[0].ID, 2, "ok")
	require.NoError(t, err)

	trail, err := svc.History(context.Background(), created[0].ID, shared.Identity{UserID: 5, Role: shared.RoleStaff})
	require.NoError(t, err)
	require.Len(t, trail, 2)
	require.Equal(t, shared.ApprovalSubmit, trail[0].Action)
	require.Equal(t, shared.ApprovalApprove, trail[1].Action)
	require.Equal(t, int64(2), trail[1].ActorID)

	// Unrelated staff cannot read someone else's trail.
	_, err = svc.History(context.Background(), created[0].ID, shared.Identity{UserID: 7, Role: shared.RoleStaff})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteRequiresRequesterOrAdmin(t *testing.T) {
	repo := seedRepo()
	svc := workflowService(repo, &fakeNotifier{})

	created, err := svc.Create(context.Background(), 5, CreateInput{ProductID: 1, SerialNumberIDs: []int64{10}})
	require.NoError(t, err)
	id := created[0].ID

	err = svc.Delete(context.Background(), id, shared.Identity{UserID: 7, Role: shared.RoleStaff})
	require.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(context.Background(), id, shared.Identity{UserID: 7, Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.Empty(t, repo.requests)
}
