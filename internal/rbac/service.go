package rbac

import (
	"context"
	"errors"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// Repository loads subjects for authorization decisions.
type Repository interface {
	LoadSubject(ctx context.Context, userID int64) (*Subject, error)
}

// Service orchestrates RBAC decisions.
type Service struct {
	repo Repository
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Subject loads the subject for userID. A missing user yields (nil, nil).
func (s *Service) Subject(ctx context.Context, userID int64) (*Subject, error) {
	subject, err := s.repo.LoadSubject(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return subject, nil
}

// HasPermission resolves capability c for userID. Missing or inactive users
// are denied; only storage failures produce an error.
func (s *Service) HasPermission(ctx context.Context, userID int64, c Capability) (bool, error) {
	subject, err := s.Subject(ctx, userID)
	if err != nil {
		return false, err
	}
	if subject == nil || !subject.Active {
		return false, nil
	}
	return HasPermission(subject, c), nil
}

// IsAdmin reports whether userID holds the wildcard.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.HasPermission(ctx, userID, Wildcard)
}
