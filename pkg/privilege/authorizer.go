package privilege

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/pkg/errors"
)

// Grant records the operations a principal may perform on one module.
// A principal holds at most one Grant per module.
type Grant struct {
	Module     Module      `json:"module" db:"module"`
	Operations []Operation `json:"operations" db:"operations"`
	GrantedBy  uuid.UUID   `json:"granted_by" db:"granted_by"`
	GrantedAt  time.Time   `json:"granted_at" db:"granted_at"`
}

// Allows reports whether the grant's operation set contains op.
func (g Grant) Allows(op Operation) bool {
	for _, o := range g.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Principal is the authorization view of a user: no request state, no
// storage handles, just what Authorize needs.
type Principal struct {
	ID         uuid.UUID
	Active     bool
	SuperAdmin bool
	Grants     []Grant
}

func (p *Principal) grantFor(module Module) *Grant {
	for i := range p.Grants {
		if p.Grants[i].Module == module {
			return &p.Grants[i]
		}
	}
	return nil
}

// Authorizer evaluates capabilities against the registry.
type Authorizer struct {
	registry *Registry
}

func NewAuthorizer(registry *Registry) *Authorizer {
	return &Authorizer{registry: registry}
}

// Registry exposes the backing capability enumeration.
func (a *Authorizer) Registry() *Registry {
	return a.registry
}

// Authorize returns nil when the principal may perform op on module.
// Super-admins are always allowed. An unknown (module, op) pair fails with
// InvalidCapability regardless of grants; an authenticated principal lacking
// the capability fails with Forbidden.
func (a *Authorizer) Authorize(p *Principal, module Module, op Operation) error {
	if p.SuperAdmin {
		return nil
	}
	if err := a.registry.Validate(module, op); err != nil {
		return err
	}
	if g := p.grantFor(module); g != nil && g.Allows(op) {
		return nil
	}
	return errors.Forbidden(
		fmt.Sprintf("insufficient privilege for %s operation on %s module", op, module), nil)
}

// Grant merges the given operations into the principal's grant for module,
// refreshing attribution. It is idempotent-additive: regranting an operation
// the principal already holds is not an error.
func (a *Authorizer) Grant(p *Principal, module Module, ops []Operation, grantedBy uuid.UUID, at time.Time) error {
	if !p.Active {
		return errors.BadRequest("cannot grant privileges to an inactive user", nil)
	}
	if len(ops) == 0 {
		return errors.BadRequest("at least one operation is required", nil)
	}
	if err := a.registry.Validate(module, ops...); err != nil {
		return errors.BadRequest(err.Error(), err)
	}

	if g := p.grantFor(module); g != nil {
		g.Operations = unionOps(g.Operations, ops)
		g.GrantedBy = grantedBy
		g.GrantedAt = at
		return nil
	}

	p.Grants = append(p.Grants, Grant{
		Module:     module,
		Operations: unionOps(nil, ops),
		GrantedBy:  grantedBy,
		GrantedAt:  at,
	})
	return nil
}

// Revoke removes operations from the principal's grant for module. With an
// empty operation list the whole grant is removed. Removing the last
// operation also removes the grant.
func (a *Authorizer) Revoke(p *Principal, module Module, ops []Operation) error {
	if len(ops) == 0 {
		if err := a.registry.Validate(module); err != nil {
			return errors.BadRequest(err.Error(), err)
		}
	} else if err := a.registry.Validate(module, ops...); err != nil {
		return errors.BadRequest(err.Error(), err)
	}

	g := p.grantFor(module)
	if g == nil {
		return errors.NotFound(fmt.Sprintf("grant for module %s", module), nil)
	}

	if len(ops) == 0 {
		p.removeGrant(module)
		return nil
	}

	g.Operations = subtractOps(g.Operations, ops)
	if len(g.Operations) == 0 {
		p.removeGrant(module)
	}
	return nil
}

func (p *Principal) removeGrant(module Module) {
	kept := p.Grants[:0]
	for _, g := range p.Grants {
		if g.Module != module {
			kept = append(kept, g)
		}
	}
	p.Grants = kept
}

// DefaultGrants is the read-only grant set every new principal starts with,
// attributed to the principal itself.
func DefaultGrants(owner uuid.UUID, at time.Time) []Grant {
	modules := []Module{ModuleStock, ModuleAppointments, ModuleDoctors, ModulePatients}
	grants := make([]Grant, 0, len(modules))
	for _, m := range modules {
		grants = append(grants, Grant{
			Module:     m,
			Operations: []Operation{OpView},
			GrantedBy:  owner,
			GrantedAt:  at,
		})
	}
	return grants
}

func unionOps(existing, added []Operation) []Operation {
	seen := make(map[Operation]struct{}, len(existing)+len(added))
	out := make([]Operation, 0, len(existing)+len(added))
	for _, op := range existing {
		if _, ok := seen[op]; !ok {
			seen[op] = struct{}{}
			out = append(out, op)
		}
	}
	for _, op := range added {
		if _, ok := seen[op]; !ok {
			seen[op] = struct{}{}
			out = append(out, op)
		}
	}
	return out
}

func subtractOps(existing, removed []Operation) []Operation {
	drop := make(map[Operation]struct{}, len(removed))
	for _, op := range removed {
		drop[op] = struct{}{}
	}
	out := existing[:0]
	for _, op := range existing {
		if _, ok := drop[op]; !ok {
			out = append(out, op)
		}
	}
	return out
}
