package resolution

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/logger"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500

	writeTimeout = 2 * time.Second
)

// ErrDisabled is returned when no database is configured.
var ErrDisabled = &disabledError{}

type disabledError struct{}

func (*disabledError) Error() string     { return "Resolution audit trail is not configured" }
func (*disabledError) HTTPStatus() int   { return http.StatusServiceUnavailable }
func (*disabledError) ErrorCode() string { return "AUDIT_DISABLED" }

// Store is the persistence used by the service.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, operation string, limit int) ([]Entry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service records resolver outcomes and serves them back to admins.
// A nil store turns recording into logging only.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a resolution service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Record implements officeapi.Recorder. Failures are logged and never
// reach the caller of the resolved operation.
func (s *Service) Record(ctx context.Context, o officeapi.Outcome) {
	entry := NewEntry(o, s.now())

	if entry.Outcome != OutcomeAccepted {
		logger.LogDebug(ctx, "resolution failed",
			"operation", entry.Operation,
			"outcome", entry.Outcome,
			"attempts", len(entry.Attempts),
		)
	}
	if s.store == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := s.store.Create(writeCtx, entry); err != nil {
		logger.LogError(ctx, err, "failed to record resolution", "operation", entry.Operation)
	}
}

// Recent returns the newest entries. limit is clamped to [1, MaxLimit].
func (s *Service) Recent(ctx context.Context, operation string, limit int) ([]Entry, error) {
	if s.store == nil {
		return nil, ErrDisabled
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return s.store.List(ctx, operation, limit)
}

// Prune deletes entries older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s.store == nil {
		return 0, ErrDisabled
	}
	if retention <= 0 {
		return 0, errors.New("retention must be positive")
	}
	return s.store.DeleteBefore(ctx, s.now().Add(-retention))
}
