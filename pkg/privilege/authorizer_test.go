package privilege

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/radiology-api/pkg/errors"
)

func newPrincipal(grants ...Grant) *Principal {
	return &Principal{ID: uuid.New(), Active: true, Grants: grants}
}

func TestAuthorizeSuperAdmin(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := &Principal{ID: uuid.New(), Active: true, SuperAdmin: true}

	for _, m := range auth.Registry().Modules() {
		for _, op := range AllOperations {
			assert.NoError(t, auth.Authorize(p, m, op), "super admin denied %s on %s", op, m)
		}
	}
}

func TestAuthorizeGrantRequired(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := newPrincipal(Grant{Module: ModuleAppointments, Operations: []Operation{OpView}})

	assert.NoError(t, auth.Authorize(p, ModuleAppointments, OpView))

	err := auth.Authorize(p, ModuleAppointments, OpCreate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	err = auth.Authorize(p, ModuleStock, OpView)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestAuthorizeUnknownCapabilityIsNotADeny(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := newPrincipal()

	err := auth.Authorize(p, Module("billing"), OpView)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCapability))

	err = auth.Authorize(p, ModuleStock, Operation("manage"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCapability))
}

func TestGrantMergesOperations(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	admin := uuid.New()
	now := time.Now()
	p := newPrincipal(Grant{Module: ModuleAppointments, Operations: []Operation{OpView}, GrantedBy: admin, GrantedAt: now})

	later := now.Add(time.Hour)
	other := uuid.New()
	require.NoError(t, auth.Grant(p, ModuleAppointments, []Operation{OpCreate, OpView}, other, later))

	require.Len(t, p.Grants, 1)
	g := p.Grants[0]
	assert.ElementsMatch(t, []Operation{OpView, OpCreate}, g.Operations)
	assert.Equal(t, other, g.GrantedBy)
	assert.Equal(t, later, g.GrantedAt)
}

func TestGrantRejectsInactivePrincipal(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := &Principal{ID: uuid.New(), Active: false}

	err := auth.Grant(p, ModuleAppointments, []Operation{OpView}, uuid.New(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestGrantRejectsUnknownCapability(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := newPrincipal()

	err := auth.Grant(p, Module("billing"), []Operation{OpView}, uuid.New(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	err = auth.Grant(p, ModuleStock, []Operation{Operation("manage")}, uuid.New(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestGrantThenRevokeRoundTrip(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := newPrincipal(Grant{Module: ModuleAppointments, Operations: []Operation{OpView}})

	before := auth.Authorize(p, ModuleAppointments, OpCreate)
	require.Error(t, before)

	require.NoError(t, auth.Grant(p, ModuleAppointments, []Operation{OpCreate}, uuid.New(), time.Now()))
	assert.NoError(t, auth.Authorize(p, ModuleAppointments, OpCreate))

	require.NoError(t, auth.Revoke(p, ModuleAppointments, []Operation{OpCreate}))
	after := auth.Authorize(p, ModuleAppointments, OpCreate)
	require.Error(t, after)
	assert.Equal(t, errors.From(before).Code, errors.From(after).Code)

	// Untouched operation survives the revoke.
	assert.NoError(t, auth.Authorize(p, ModuleAppointments, OpView))
}

func TestRevokeWholeGrant(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := newPrincipal(
		Grant{Module: ModuleAppointments, Operations: []Operation{OpView, OpCreate}},
		Grant{Module: ModuleStock, Operations: []Operation{OpView}},
	)

	require.NoError(t, auth.Revoke(p, ModuleAppointments, nil))
	require.Len(t, p.Grants, 1)
	assert.Equal(t, ModuleStock, p.Grants[0].Module)
}

func TestRevokeLastOperationRemovesGrant(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := newPrincipal(Grant{Module: ModuleStock, Operations: []Operation{OpView}})

	require.NoError(t, auth.Revoke(p, ModuleStock, []Operation{OpView}))
	assert.Empty(t, p.Grants)
}

func TestRevokeWithoutGrantFailsNotFound(t *testing.T) {
	auth := NewAuthorizer(NewRegistry())
	p := newPrincipal()

	err := auth.Revoke(p, ModuleStock, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDefaultGrantsAreSelfAttributedViewOnly(t *testing.T) {
	owner := uuid.New()
	now := time.Now()
	grants := DefaultGrants(owner, now)

	modules := make([]Module, 0, len(grants))
	for _, g := range grants {
		modules = append(modules, g.Module)
		assert.Equal(t, []Operation{OpView}, g.Operations)
		assert.Equal(t, owner, g.GrantedBy)
		assert.Equal(t, now, g.GrantedAt)
	}
	assert.ElementsMatch(t, []Module{ModuleStock, ModuleAppointments, ModuleDoctors, ModulePatients}, modules)
}

func TestRegistryEnumeration(t *testing.T) {
	r := NewRegistry()

	assert.Len(t, r.Modules(), 9)
	assert.True(t, r.IsValid(ModulePatientHistory, OpDelete))
	assert.False(t, r.IsValid(Module("billing"), OpView))

	ops, err := r.OperationsOf(ModuleScans)
	require.NoError(t, err)
	assert.ElementsMatch(t, AllOperations, ops)

	_, err = r.OperationsOf(Module("billing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCapability))
}
