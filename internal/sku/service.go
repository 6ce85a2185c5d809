package sku

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// RepositoryPort abstracts counter persistence for the service.
type RepositoryPort interface {
	Increment(ctx context.Context, defaultPrefix string) (Counter, error)
	Get(ctx context.Context) (Counter, error)
	SetPrefix(ctx context.Context, prefix string) error
}

// Service mints product SKUs from the shared counter.
type Service struct {
	repo          RepositoryPort
	logger        *slog.Logger
	defaultPrefix string
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger, defaultPrefix string) *Service {
	if defaultPrefix == "" {
		defaultPrefix = "SKU"
	}
	return &Service{repo: repo, logger: logger, defaultPrefix: defaultPrefix}
}

// Next returns the next formatted SKU. Each call increments the counter
// exactly once and is safe under concurrent callers. When the store is
// unavailable the value degrades to one derived from wall-clock time; the
// collision risk is accepted rather than retried.
func (s *Service) Next(ctx context.Context) (string, error) {
	counter, err := s.repo.Increment(ctx, s.defaultPrefix)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("sku counter unavailable, using time fallback", slog.Any("error", err))
		}
		return Format(s.defaultPrefix, time.Now().UnixMilli()%100000), nil
	}
	return Format(counter.Prefix, counter.Value), nil
}

// Peek reports the current prefix and value without consuming a number.
func (s *Service) Peek(ctx context.Context) (Counter, error) {
	counter, err := s.repo.Get(ctx)
	if err != nil {
		return Counter{}, err
	}
	if counter.Prefix == "" {
		counter.Prefix = s.defaultPrefix
	}
	return counter, nil
}

// SetPrefix updates the formatting prefix. The counter value never resets.
func (s *Service) SetPrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ErrPrefixRequired
	}
	return s.repo.SetPrefix(ctx, prefix)
}
