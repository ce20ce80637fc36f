package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

type memRepo struct {
	roles  map[int64]string
	users  map[int64]*Account
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		roles: map[int64]string{1: "Administrateur", 3: "Technicien"},
		users: map[int64]*Account{},
	}
}

func (m *memRepo) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	for id := int64(1); id <= m.nextID; id++ {
		if acc, ok := m.users[id]; ok {
			out = append(out, acc.User)
		}
	}
	return out, nil
}

func (m *memRepo) GetUser(ctx context.Context, id int64) (*Account, error) {
	acc, ok := m.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *memRepo) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	_, ok := m.roles[roleID]
	return ok, nil
}

func (m *memRepo) unique(acc Account) error {
	for id, other := range m.users {
		if id != acc.ID && (other.Username == acc.Username || other.Email == acc.Email) {
			return errDuplicateUser
		}
	}
	return nil
}

func (m *memRepo) CreateUser(ctx context.Context, acc Account) (int64, error) {
	if err := m.unique(acc); err != nil {
		return 0, err
	}
	m.nextID++
	acc.ID = m.nextID
	acc.RoleName = m.roles[acc.RoleID]
	m.users[acc.ID] = &acc
	return acc.ID, nil
}

func (m *memRepo) UpdateUser(ctx context.Context, acc Account) error {
	if _, ok := m.users[acc.ID]; !ok {
		return errUserNotFound
	}
	if err := m.unique(acc); err != nil {
		return err
	}
	acc.RoleName = m.roles[acc.RoleID]
	m.users[acc.ID] = &acc
	return nil
}

func (m *memRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	acc, ok := m.users[id]
	if !ok {
		return errUserNotFound
	}
	acc.PasswordHash = hash
	return nil
}

func (m *memRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return errUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memRepo) ListActiveByRole(ctx context.Context, roleName string) ([]Technicien, error) {
	var out []Technicien
	for _, acc := range m.users {
		if acc.IsActive && acc.RoleName == roleName {
			out = append(out, Technicien{ID: acc.ID, Username: acc.Username})
		}
	}
	return out, nil
}

type recordingAuditor struct {
	logs []shared.AuditLog
}

func (r *recordingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newTestService() (*Service, *memRepo, *recordingAuditor) {
	repo := newMemRepo()
	audit := &recordingAuditor{}
	svc := NewService(repo, audit, nil)
	svc.hashFor = func(p string) (string, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
		return string(h), err
	}
	return svc, repo, audit
}

func validInput() CreateInput {
	return CreateInput{Username: "moussa", Email: "moussa@sahel.sn", Password: "secret1", Nom: "Ba", Prenom: "Moussa", RoleID: 3}
}

func TestCreateUser(t *testing.T) {
	svc, repo, audit := newTestService()
	ctx := context.Background()

	id, err := svc.CreateUser(ctx, 1, validInput())
	require.NoError(t, err)

	acc := repo.users[id]
	assert.Equal(t, DefaultSite, acc.Site)
	assert.True(t, acc.IsActive)
	assert.Empty(t, acc.Permissions, "direct permissions stay empty, the role applies")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("secret1")))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "user.create", audit.logs[0].Action)

	_, err = svc.CreateUser(ctx, 1, validInput())
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestCreateUserRejectsUnknownRoleAndPermissions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := validInput()
	in.RoleID = 99
	_, err := svc.CreateUser(ctx, 1, in)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	in = validInput()
	in.Permissions = "attendance,flying"
	_, err = svc.CreateUser(ctx, 1, in)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	in.Permissions = "Attendance, clients"
	id, err := svc.CreateUser(ctx, 1, in)
	require.NoError(t, err)
	users, _ := svc.ListUsers(ctx)
	require.Len(t, users, 1)
	assert.Equal(t, id, users[0].ID)
	assert.Equal(t, "attendance,clients", users[0].Permissions)
}

func TestUpdateUserPartial(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	id, err := svc.CreateUser(ctx, 1, validInput())
	require.NoError(t, err)

	inactive := false
	site := "Thiès"
	user, err := svc.UpdateUser(ctx, 1, id, UpdateInput{IsActive: &inactive, Site: &site})
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, "Thiès", user.Site)
	assert.Equal(t, "moussa", user.Username)

	badRole := int64(42)
	_, err = svc.UpdateUser(ctx, 1, id, UpdateInput{RoleID: &badRole})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assert.Equal(t, int64(3), repo.users[id].RoleID)

	_, err = svc.UpdateUser(ctx, 1, 999, UpdateInput{})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestDeleteUserRefusesSelf(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	id, err := svc.CreateUser(ctx, 1, validInput())
	require.NoError(t, err)

	err = svc.DeleteUser(ctx, id, id)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assert.Contains(t, repo.users, id)

	require.NoError(t, svc.DeleteUser(ctx, 1, id))
	assert.NotContains(t, repo.users, id)
}

func TestChangePassword(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	id, err := svc.CreateUser(ctx, 1, validInput())
	require.NoError(t, err)
	otherIn := validInput()
	otherIn.Username, otherIn.Email = "fatou", "fatou@sahel.sn"
	other, err := svc.CreateUser(ctx, 1, otherIn)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, id, false, id, PasswordChange{CurrentPassword: "nope", NewPassword: "newpass"})
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	err = svc.ChangePassword(ctx, id, false, other, PasswordChange{CurrentPassword: "secret1", NewPassword: "newpass"})
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	require.NoError(t, svc.ChangePassword(ctx, id, false, id, PasswordChange{CurrentPassword: "secret1", NewPassword: "newpass"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[id].PasswordHash), []byte("newpass")))

	require.NoError(t, svc.ChangePassword(ctx, 1, true, other, PasswordChange{NewPassword: "reset99"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[other].PasswordHash), []byte("reset99")))
}

func TestListTechniciens(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, 1, validInput())
	require.NoError(t, err)
	adminIn := validInput()
	adminIn.Username, adminIn.Email, adminIn.RoleID = "boss", "boss@sahel.sn", 1
	_, err = svc.CreateUser(ctx, 1, adminIn)
	require.NoError(t, err)

	techs, err := svc.ListTechniciens(ctx)
	require.NoError(t, err)
	require.Len(t, techs, 1)
	assert.Equal(t, "moussa", techs[0].Username)
}
