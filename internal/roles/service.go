package roles

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

var errAdminRoleLocked = shared.NewError(shared.ErrPolicy, "admin_role_locked", "Le rôle Administrateur doit conserver la permission \"all\" et son nom.")

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
}

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	audit  shared.Auditor
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateRole validates the capability set and stores the role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, in RoleInput) (Role, error) {
	role, err := normalize(in)
	if err != nil {
		return Role{}, err
	}
	created, err := s.repo.CreateRole(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.create", created)
	return created, nil
}

// UpdateRole replaces a role definition. The admin role keeps its name and wildcard.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, in RoleInput) (Role, error) {
	role, err := normalize(in)
	if err != nil {
		return Role{}, err
	}
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if current.Name == AdminRoleName && (role.Name != AdminRoleName || role.Permissions != string(rbac.Wildcard)) {
		return Role{}, errAdminRoleLocked
	}
	role.ID = id
	updated, err := s.repo.UpdateRole(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.update", updated)
	return updated, nil
}

func normalize(in RoleInput) (Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, shared.Validation("Le nom du rôle est obligatoire.")
	}
	perms, err := rbac.ValidateSet(in.Permissions)
	if err != nil {
		return Role{}, err
	}
	return Role{Name: name, Description: strings.TrimSpace(in.Description), Permissions: perms.String()}, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, role Role) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(role.ID, 10),
		Meta:     map[string]any{"name": role.Name, "permissions": role.Permissions},
	})
	if err != nil {
		s.logger.Warn("audit role change", slog.String("action", action), slog.Any("error", err))
	}
}
