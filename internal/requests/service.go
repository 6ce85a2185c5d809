package requests

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/stocktrack/stocktrack/internal/notify"
	"github.com/stocktrack/stocktrack/internal/shared"
)

// RepositoryPort describes the persistence surface the service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (StockRequest, error)
	ListForUser(ctx context.Context, userID int64) ([]StockRequest, error)
	ListPending(ctx context.Context) ([]StockRequest, error)
	Delete(ctx context.Context, id int64) error
}

// NotifierPort fans workflow events out to users.
type NotifierPort interface {
	Send(ctx context.Context, in notify.Input) (notify.Notification, error)
}

// ApprovalPort records and reads approval history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// IdempotencyPort guards client retries of the create endpoint.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const approvalModule = "stock_requests"

// Service coordinates the stock request approval workflow.
type Service struct {
	logger      *slog.Logger
	repo        RepositoryPort
	notifier    NotifierPort
	approvals   ApprovalPort
	idempotency IdempotencyPort
	audit       AuditPort
}

// NewService builds Service. notifier, approvals, idempotency and audit may
// be nil in tests.
func NewService(logger *slog.Logger, repo RepositoryPort, notifier NotifierPort, approvals ApprovalPort, idempotency IdempotencyPort, audit AuditPort) *Service {
	return &Service{logger: logger, repo: repo, notifier: notifier, approvals: approvals, idempotency: idempotency, audit: audit}
}

// CreateInput carries a submission. SerialNumberIDs binds specific units;
// when empty, Quantity expresses an unbound ask.
type CreateInput struct {
	ProductID       int64
	SerialNumberIDs []int64
	Quantity        int
	Notes           string
	IdempotencyKey  string
}

// Create submits one request per bound serial (or one unbound request) in a
// single transaction. Every bound serial must be IN_STOCK, belong to the
// product and carry no other PENDING request; otherwise nothing is created.
func (s *Service) Create(ctx context.Context, requesterID int64, in CreateInput) ([]StockRequest, error) {
	if in.ProductID <= 0 || requesterID <= 0 {
		return nil, ErrValidation
	}
	if len(in.SerialNumberIDs) == 0 && in.Quantity <= 0 {
		in.Quantity = 1
	}
	if in.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, in.IdempotencyKey, approvalModule); err != nil {
			return nil, err
		}
	}

	var created []StockRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.ProductExists(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrProductNotFound
		}
		if len(in.SerialNumberIDs) == 0 {
			req, err := tx.InsertRequest(ctx, StockRequest{
				Ref:         uuid.New(),
				ProductID:   in.ProductID,
				RequesterID: requesterID,
				Quantity:    in.Quantity,
				Status:      StatusPending,
				Notes:       in.Notes,
			})
			if err != nil {
				return err
			}
			created = append(created, req)
			return nil
		}

		locked, err := tx.LockSerials(ctx, in.SerialNumberIDs)
		if err != nil {
			return err
		}
		if len(locked) != len(in.SerialNumberIDs) {
			return ErrUnavailableSerials
		}
		for _, serial := range locked {
			if serial.ProductID != in.ProductID || serial.Status != "IN_STOCK" {
				return ErrUnavailableSerials
			}
		}
		for _, serial := range locked {
			serialID := serial.ID
			req, err := tx.InsertRequest(ctx, StockRequest{
				Ref:            uuid.New(),
				ProductID:      in.ProductID,
				RequesterID:    requesterID,
				SerialNumberID: &serialID,
				Quantity:       1,
				Status:         StatusPending,
				Notes:          in.Notes,
			})
			if err != nil {
				return err
			}
			created = append(created, req)
		}
		return nil
	})
	if err != nil {
		if in.IdempotencyKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, in.IdempotencyKey)
		}
		return nil, err
	}

	for _, req := range created {
		s.recordApproval(ctx, req, requesterID, shared.ApprovalSubmit, in.Notes)
	}
	s.notifyAdmins(ctx, created, requesterID)
	s.recordAudit(ctx, requesterID, "REQUEST_CREATE", in.ProductID, map[string]any{"count": len(created)})
	return created, nil
}

// Approve moves a PENDING request to APPROVED. A serial-bound request
// transitions its unit IN_STOCK -> OUT_OF_STOCK in the same transaction, so a
// crash leaves either both changes or neither.
func (s *Service) Approve(ctx context.Context, requestID, approverID int64, notes string) (StockRequest, error) {
	var approved StockRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrInvalidState
		}
		if req.SerialNumberID != nil {
			claimed, err := tx.ClaimSerialOut(ctx, *req.SerialNumberID)
			if err != nil {
				return err
			}
			if !claimed {
				return ErrUnavailableSerials
			}
		}
		req.Status = StatusApproved
		req.ApproverID = &approverID
		if trimmed := strings.TrimSpace(notes); trimmed != "" {
			req.Notes = appendNote(req.Notes, trimmed)
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return StockRequest{}, err
	}

	s.recordApproval(ctx, approved, approverID, shared.ApprovalApprove, notes)
	s.notifyRequester(ctx, approved, approverID, "Stock request approved",
		fmt.Sprintf("Your stock request #%d was approved.", approved.ID))
	s.recordAudit(ctx, approverID, "REQUEST_APPROVE", approved.ID, nil)
	return approved, nil
}

// Reject moves a PENDING request to REJECTED. A reason is mandatory and is
// appended to the request's notes; the linked unit is never touched.
func (s *Service) Reject(ctx context.Context, requestID, approverID int64, reason string) (StockRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return StockRequest{}, ErrMissingReason
	}
	var rejected StockRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrInvalidState
		}
		req.Status = StatusRejected
		req.ApproverID = &approverID
		req.Notes = appendNote(req.Notes, "Rejected: "+reason)
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return StockRequest{}, err
	}

	s.recordApproval(ctx, rejected, approverID, shared.ApprovalReject, reason)
	s.notifyRequester(ctx, rejected, approverID, "Stock request rejected",
		fmt.Sprintf("Your stock request #%d was rejected: %s", rejected.ID, reason))
	s.recordAudit(ctx, approverID, "REQUEST_REJECT", rejected.ID, nil)
	return rejected, nil
}

// UpdateStatus is the generalized transition path. Only APPROVED -> COMPLETED
// is allowed here; approval and rejection go through their dedicated
// operations. Only the requester or an admin may complete a request.
func (s *Service) UpdateStatus(ctx context.Context, requestID int64, newStatus Status, actor shared.Identity) (StockRequest, error) {
	if !newStatus.Valid() {
		return StockRequest{}, ErrValidation
	}
	var updated StockRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.RequesterID != actor.UserID && !actor.IsAdmin() {
			return ErrForbidden
		}
		if req.Status != StatusApproved || newStatus != StatusCompleted {
			return ErrInvalidState
		}
		req.Status = newStatus
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return StockRequest{}, err
	}
	s.recordAudit(ctx, actor.UserID, "REQUEST_STATUS", requestID, map[string]any{"status": string(newStatus)})
	return updated, nil
}

// Delete removes a request in any state. Only the requester or an admin may
// delete.
func (s *Service) Delete(ctx context.Context, requestID int64, actor shared.Identity) error {
	req, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RequesterID != actor.UserID && !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, requestID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "REQUEST_DELETE", requestID, nil)
	return nil
}

// Get fetches one request; staff may only see their own.
func (s *Service) Get(ctx context.Context, requestID int64, actor shared.Identity) (StockRequest, error) {
	req, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return StockRequest{}, err
	}
	if req.RequesterID != actor.UserID && !actor.IsAdmin() {
		return StockRequest{}, ErrForbidden
	}
	return req, nil
}

// History returns the request's approval trail (submit, approve, reject with
// notes); staff may only see their own.
func (s *Service) History(ctx context.Context, requestID int64, actor shared.Identity) ([]shared.ApprovalLog, error) {
	req, err := s.Get(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	if s.approvals == nil {
		return nil, nil
	}
	return s.approvals.List(ctx, approvalModule, req.Ref)
}

// ListForUser lists the user's own requests.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]StockRequest, error) {
	return s.repo.ListForUser(ctx, userID)
}

// ListPending lists the review queue.
func (s *Service) ListPending(ctx context.Context) ([]StockRequest, error) {
	return s.repo.ListPending(ctx)
}

func (s *Service) notifyAdmins(ctx context.Context, created []StockRequest, requesterID int64) {
	if s.notifier == nil || len(created) == 0 {
		return
	}
	in := notify.Input{
		Title:      "Stock request submitted",
		Message:    fmt.Sprintf("%d stock request(s) await review.", len(created)),
		Type:       notify.TypeRequestUpdate,
		SenderID:   &requesterID,
		Recipients: notify.AllWithRole(shared.RoleAdmin),
	}
	if len(created) == 1 {
		in.RequestID = &created[0].ID
		in.ProductID = &created[0].ProductID
	}
	if _, err := s.notifier.Send(ctx, in); err != nil {
		s.logger.Warn("notify admins", slog.Any("error", err))
	}
}

func (s *Service) notifyRequester(ctx context.Context, req StockRequest, senderID int64, title, message string) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Send(ctx, notify.Input{
		Title:      title,
		Message:    message,
		Type:       notify.TypeRequestUpdate,
		ProductID:  &req.ProductID,
		RequestID:  &req.ID,
		SenderID:   &senderID,
		Recipients: notify.Explicit(req.RequesterID),
	})
	if err != nil {
		s.logger.Warn("notify requester", slog.Int64("request_id", req.ID), slog.Any("error", err))
	}
}

func (s *Service) recordApproval(ctx context.Context, req StockRequest, actorID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	err := s.approvals.Record(ctx, shared.ApprovalLog{Module: approvalModule, RefID: req.Ref, ActorID: actorID, Action: action, Note: note})
	if err != nil {
		s.logger.Warn("record approval", slog.Int64("request_id", req.ID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "stock_request", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func appendNote(existing, addition string) string {
	if strings.TrimSpace(existing) == "" {
		return addition
	}
	return existing + "\n" + addition
}
