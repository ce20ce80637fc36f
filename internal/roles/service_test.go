package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

type memRepo struct {
	roles map[int64]Role
	next  int64
}

func (m *memRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, errRoleNotFound
	}
	return r, nil
}

func (m *memRepo) CreateRole(ctx context.Context, role Role) (Role, error) {
	for _, r := range m.roles {
		if r.Name == role.Name {
			return Role{}, errDuplicateRole
		}
	}
	m.next++
	role.ID = m.next
	m.roles[role.ID] = role
	return role, nil
}

func (m *memRepo) UpdateRole(ctx context.Context, role Role) (Role, error) {
	if _, ok := m.roles[role.ID]; !ok {
		return Role{}, errRoleNotFound
	}
	m.roles[role.ID] = role
	return role, nil
}

func newTestService() (*Service, *memRepo) {
	repo := &memRepo{roles: map[int64]Role{1: {ID: 1, Name: AdminRoleName, Permissions: "all"}}, next: 1}
	return NewService(repo, nil, nil), repo
}

func TestCreateRoleCanonicalisesPermissions(t *testing.T) {
	svc, _ := newTestService()
	role, err := svc.CreateRole(context.Background(), 1, RoleInput{Name: " Commercial ", Permissions: "interventions, clients,attendance"})
	require.NoError(t, err)
	assert.Equal(t, "Commercial", role.Name)
	assert.Equal(t, "attendance,clients,interventions", role.Permissions)
}

func TestCreateRoleRejectsInvalidSets(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, perms := range []string{"attendance,unknown", "all,attendance"} {
		_, err := svc.CreateRole(ctx, 1, RoleInput{Name: "X", Permissions: perms})
		assert.Truef(t, errors.Is(err, shared.ErrValidation), "perms %q", perms)
	}
	_, err := svc.CreateRole(ctx, 1, RoleInput{Name: AdminRoleName, Permissions: "all"})
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestAdminRoleKeepsWildcard(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, 1, 1, RoleInput{Name: AdminRoleName, Permissions: "attendance"})
	assert.True(t, errors.Is(err, shared.ErrPolicy))
	_, err = svc.UpdateRole(ctx, 1, 1, RoleInput{Name: "Chef", Permissions: "all"})
	assert.True(t, errors.Is(err, shared.ErrPolicy))
	assert.Equal(t, "all", repo.roles[1].Permissions)

	updated, err := svc.UpdateRole(ctx, 1, 1, RoleInput{Name: AdminRoleName, Description: "Direction", Permissions: "all"})
	require.NoError(t, err)
	assert.Equal(t, "Direction", updated.Description)
}

func TestUpdateMissingRole(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.UpdateRole(context.Background(), 1, 404, RoleInput{Name: "Ghost"})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
