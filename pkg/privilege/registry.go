package privilege

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/radiology-api/pkg/errors"
)

// Module is a named resource domain over which capabilities are granted.
type Module string

// Operation is one of the closed set of actions performable on a module.
type Operation string

const (
	ModulePatients       Module = "patients"
	ModuleDoctors        Module = "doctors"
	ModuleAppointments   Module = "appointments"
	ModuleRadiologists   Module = "radiologists"
	ModuleScans          Module = "scans"
	ModuleScanCategories Module = "scan_categories"
	ModuleStock          Module = "stock"
	ModulePatientHistory Module = "patient_history"
	ModuleUsers          Module = "users"
)

const (
	OpView   Operation = "view"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// AllOperations is the closed operation enumeration.
var AllOperations = []Operation{OpView, OpCreate, OpUpdate, OpDelete}

// Registry is the closed set of manageable modules and the operations allowed
// on each. It is fixed at construction and read-only afterwards.
type Registry struct {
	modules map[Module]map[Operation]struct{}
}

// NewRegistry builds the deploy-time capability enumeration. Every module
// currently supports the full operation set; the per-module map keeps the
// door open for narrower modules without changing callers.
func NewRegistry() *Registry {
	r := &Registry{modules: make(map[Module]map[Operation]struct{})}
	for _, m := range []Module{
		ModulePatients,
		ModuleDoctors,
		ModuleAppointments,
		ModuleRadiologists,
		ModuleScans,
		ModuleScanCategories,
		ModuleStock,
		ModulePatientHistory,
		ModuleUsers,
	} {
		ops := make(map[Operation]struct{}, len(AllOperations))
		for _, op := range AllOperations {
			ops[op] = struct{}{}
		}
		r.modules[m] = ops
	}
	return r
}

// Modules returns the registered module names, sorted for stable output.
func (r *Registry) Modules() []Module {
	out := make([]Module, 0, len(r.modules))
	for m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OperationsOf returns the operations allowed on module.
func (r *Registry) OperationsOf(module Module) ([]Operation, error) {
	ops, ok := r.modules[module]
	if !ok {
		return nil, errors.InvalidCapability(fmt.Sprintf("unknown module: %s", module), nil)
	}
	out := make([]Operation, 0, len(ops))
	for op := range ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// IsValid reports whether (module, operation) is a registered capability.
func (r *Registry) IsValid(module Module, op Operation) bool {
	ops, ok := r.modules[module]
	if !ok {
		return false
	}
	_, ok = ops[op]
	return ok
}

// Validate checks every (module, op) pair, failing with InvalidCapability on
// the first unknown one.
func (r *Registry) Validate(module Module, ops ...Operation) error {
	if _, ok := r.modules[module]; !ok {
		return errors.InvalidCapability(fmt.Sprintf("unknown module: %s", module), nil)
	}
	for _, op := range ops {
		if !r.IsValid(module, op) {
			return errors.InvalidCapability(fmt.Sprintf("operation %s not allowed on module %s", op, module), nil)
		}
	}
	return nil
}
