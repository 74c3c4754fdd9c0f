package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
	"github.com/jwalitptl/radiology-api/pkg/security"
)

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return errors.Conflict("a user with this email already exists", nil)
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	cp := *u
	cp.Privileges = append([]privilege.Grant(nil), u.Privileges...)
	return &cp, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.NotFound("user", nil)
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return errors.NotFound("user", nil)
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}

func (r *stubUserRepo) ReplaceGrants(_ context.Context, userID uuid.UUID, grants []privilege.Grant) error {
	u, ok := r.users[userID]
	if !ok {
		return errors.NotFound("user", nil)
	}
	u.Privileges = grants
	return nil
}

func (r *stubUserRepo) ListWithPrivilege(_ context.Context, _ privilege.Module, _ privilege.Operation) ([]*model.User, error) {
	return nil, nil
}

type silentEmail struct{}

func (silentEmail) SendPasswordReset(_ context.Context, _ string, _ string) error { return nil }
func (silentEmail) SendWelcome(_ context.Context, _ string, _ string) error       { return nil }

func newTestService() (*Service, *stubUserRepo) {
	logger := zerolog.Nop()
	repo := newStubUserRepo()
	authorizer := privilege.NewAuthorizer(privilege.NewRegistry())
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return NewService(repo, authorizer, silentEmail{}, clk, &logger), repo
}

func createRequest() *model.CreateUserRequest {
	return &model.CreateUserRequest{
		Username: "asha",
		Email:    "asha@clinic.test",
		Password: "a strong password",
	}
}

func TestCreateAppliesDefaultGrants(t *testing.T) {
	svc, _ := newTestService()

	user, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperAdmin)
	require.Len(t, user.Privileges, 4)
	for _, g := range user.Privileges {
		assert.Equal(t, []privilege.Operation{privilege.OpView}, g.Operations)
		assert.Equal(t, user.ID, g.GrantedBy)
	}
	assert.True(t, security.CheckPassword(user.PasswordHash, "a strong password"))
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestGrantPrivilegesPersistsMergedGrant(t *testing.T) {
	svc, repo := newTestService()
	user, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	admin := uuid.New()

	updated, err := svc.GrantPrivileges(context.Background(), user.ID, admin, &model.GrantRequest{
		Module:     privilege.ModuleAppointments,
		Operations: []privilege.Operation{privilege.OpCreate, privilege.OpUpdate},
	})
	require.NoError(t, err)

	var grant *privilege.Grant
	for i := range updated.Privileges {
		if updated.Privileges[i].Module == privilege.ModuleAppointments {
			grant = &updated.Privileges[i]
		}
	}
	require.NotNil(t, grant)
	assert.ElementsMatch(t,
		[]privilege.Operation{privilege.OpView, privilege.OpCreate, privilege.OpUpdate},
		grant.Operations)
	assert.Equal(t, admin, grant.GrantedBy)

	// The merge reached storage, not just the returned value.
	assert.Equal(t, updated.Privileges, repo.users[user.ID].Privileges)
}

func TestGrantUnknownCapabilityChangesNothing(t *testing.T) {
	svc, repo := newTestService()
	user, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	before := repo.users[user.ID].Privileges

	_, err = svc.GrantPrivileges(context.Background(), user.ID, uuid.New(), &model.GrantRequest{
		Module:     privilege.Module("billing"),
		Operations: []privilege.Operation{privilege.OpView},
	})
	require.Error(t, err)
	assert.Equal(t, before, repo.users[user.ID].Privileges)
}

func TestRevokeWholeModuleGrant(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	updated, err := svc.RevokePrivileges(context.Background(), user.ID, &model.RevokeRequest{
		Module: privilege.ModuleStock,
	})
	require.NoError(t, err)

	assert.Len(t, updated.Privileges, 3)
	for _, g := range updated.Privileges {
		assert.NotEqual(t, privilege.ModuleStock, g.Module)
	}
}

func TestRevokeAbsentGrantIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	_, err = svc.RevokePrivileges(context.Background(), user.ID, &model.RevokeRequest{
		Module: privilege.ModuleScans,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCapabilitiesCatalog(t *testing.T) {
	svc, _ := newTestService()

	catalog := svc.Capabilities()
	assert.Len(t, catalog, 9)
	assert.ElementsMatch(t, privilege.AllOperations, catalog[privilege.ModulePatientHistory])
}
