package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

var (
	errSelfDelete      = shared.NewError(shared.ErrValidation, "self_delete", "Vous ne pouvez pas supprimer votre propre compte.")
	errWrongPassword   = shared.NewError(shared.ErrForbidden, "wrong_password", "Mot de passe actuel incorrect")
	errPasswordForeign = shared.NewError(shared.ErrForbidden, "access_denied", "Accès refusé")
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*Account, error)
	RoleExists(ctx context.Context, roleID int64) (bool, error)
	CreateUser(ctx context.Context, acc Account) (int64, error)
	UpdateUser(ctx context.Context, acc Account) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	DeleteUser(ctx context.Context, id int64) error
	ListActiveByRole(ctx context.Context, roleName string) ([]Technicien, error)
}

// Service handles user business logic.
type Service struct {
	repo    RepositoryPort
	audit   shared.Auditor
	logger  *slog.Logger
	hashFor func(password string) (string, error)
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, hashFor: HashPassword}
}

// HashPassword hashes password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("users: hash password: %w", err)
	}
	return string(hash), nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser registers a new active user.
func (s *Service) CreateUser(ctx context.Context, actorID int64, in CreateInput) (int64, error) {
	perms, err := rbac.ValidateSet(in.Permissions)
	if err != nil {
		return 0, err
	}
	if err := s.ensureRole(ctx, in.RoleID); err != nil {
		return 0, err
	}
	hash, err := s.hashFor(in.Password)
	if err != nil {
		return 0, err
	}
	site := strings.TrimSpace(in.Site)
	if site == "" {
		site = DefaultSite
	}
	acc := Account{
		User: User{
			Username:    strings.TrimSpace(in.Username),
			Email:       strings.TrimSpace(in.Email),
			Nom:         strings.TrimSpace(in.Nom),
			Prenom:      strings.TrimSpace(in.Prenom),
			Telephone:   strings.TrimSpace(in.Telephone),
			Site:        site,
			RoleID:      in.RoleID,
			Permissions: perms.String(),
			IsActive:    true,
		},
		PasswordHash: hash,
	}
	id, err := s.repo.CreateUser(ctx, acc)
	if err != nil {
		return 0, err
	}
	s.record(ctx, actorID, "user.create", id, map[string]any{"username": acc.Username, "role_id": acc.RoleID})
	return id, nil
}

// UpdateUser applies a partial update.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, in UpdateInput) (*User, error) {
	acc, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		acc.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		acc.Email = strings.TrimSpace(*in.Email)
	}
	if in.Nom != nil {
		acc.Nom = strings.TrimSpace(*in.Nom)
	}
	if in.Prenom != nil {
		acc.Prenom = strings.TrimSpace(*in.Prenom)
	}
	if in.Telephone != nil {
		acc.Telephone = strings.TrimSpace(*in.Telephone)
	}
	if in.Site != nil {
		acc.Site = strings.TrimSpace(*in.Site)
	}
	if in.IsActive != nil {
		acc.IsActive = *in.IsActive
	}
	if in.RoleID != nil && *in.RoleID != acc.RoleID {
		if err := s.ensureRole(ctx, *in.RoleID); err != nil {
			return nil, err
		}
		acc.RoleID = *in.RoleID
	}
	if in.Permissions != nil {
		perms, err := rbac.ValidateSet(*in.Permissions)
		if err != nil {
			return nil, err
		}
		acc.Permissions = perms.String()
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := s.hashFor(*in.Password)
		if err != nil {
			return nil, err
		}
		acc.PasswordHash = hash
	}
	if err := s.repo.UpdateUser(ctx, *acc); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "user.update", id, map[string]any{"is_active": acc.IsActive, "role_id": acc.RoleID})
	return &acc.User, nil
}

// DeleteUser removes a user. Actors cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return errSelfDelete
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.delete", id, nil)
	return nil
}

// ChangePassword lets admins reset any password and other users change
// their own after proving the current one.
func (s *Service) ChangePassword(ctx context.Context, actorID int64, actorIsAdmin bool, targetID int64, in PasswordChange) error {
	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if !actorIsAdmin {
		if actorID != targetID {
			return errPasswordForeign
		}
		if bcrypt.CompareHashAndPassword([]byte(target.PasswordHash), []byte(in.CurrentPassword)) != nil {
			return errWrongPassword
		}
	}
	hash, err := s.hashFor(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, targetID, hash); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.password", targetID, map[string]any{"reset_by_admin": actorIsAdmin && actorID != targetID})
	return nil
}

// ListTechniciens returns active field technicians.
func (s *Service) ListTechniciens(ctx context.Context) ([]Technicien, error) {
	return s.repo.ListActiveByRole(ctx, TechnicienRole)
}

func (s *Service) ensureRole(ctx context.Context, roleID int64) error {
	ok, err := s.repo.RoleExists(ctx, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return errRoleNotFound
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit user change", slog.String("action", action), slog.Int64("user_id", id), slog.Any("error", err))
	}
}
