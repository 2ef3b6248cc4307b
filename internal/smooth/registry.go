package smooth

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// KernelModule is the implementation location recorded for the
// built-in kernels. Fingerprints embed it so a run can be traced back
// to the exact entry point that produced it.
const KernelModule = "github.com/banshee-data/dyno.tune/internal/smooth"

// Spec describes one registered kernel. Immutable once registered:
// Resolve hands out copies of Defaults so callers cannot mutate shared
// registry state.
type Spec struct {
	ID          string             `json:"id"`
	Module      string             `json:"module"`
	Function    string             `json:"function"`
	Description string             `json:"description"`
	Defaults    map[string]float64 `json:"defaults"`
	Smooth      Func               `json:"-"`
}

// Binding is a resolved kernel ready to invoke.
type Binding struct {
	ID       string
	Module   string
	Function string
	Defaults map[string]float64
	Smooth   Func
}

// Info is a summary of a registered kernel for listings.
type Info struct {
	ID          string             `json:"id"`
	Module      string             `json:"module"`
	Function    string             `json:"function"`
	Description string             `json:"description"`
	Defaults    map[string]float64 `json:"defaults"`
}

// UnknownKernelError reports an unregistered kernel id. The message
// enumerates every known id so a mistyped id is easy to correct.
type UnknownKernelError struct {
	ID    string
	Known []string
}

func (e *UnknownKernelError) Error() string {
	return fmt.Sprintf("unknown kernel id %q; known ids: %s", e.ID, strings.Join(e.Known, ", "))
}

// BindingError reports a registry entry whose implementation cannot be
// loaded. This is an internal configuration error, never a user input
// error, and is always fatal.
type BindingError struct {
	ID       string
	Module   string
	Function string
	// ModuleMissing distinguishes "module not found" from
	// "symbol not found" in the message.
	ModuleMissing bool
}

func (e *BindingError) Error() string {
	if e.ModuleMissing {
		return fmt.Sprintf("kernel %q: module %q not found", e.ID, e.Module)
	}
	return fmt.Sprintf("kernel %q: function %q not found in module %q", e.ID, e.Function, e.Module)
}

// Registry maps stable kernel identifiers to implementations. It is a
// closed table: all entries are constructed at start-up and nothing is
// ever loaded dynamically by string outside it.
type Registry struct {
	mu      sync.RWMutex
	kernels map[string]*Spec
	modules map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kernels: make(map[string]*Spec),
		modules: map[string]bool{KernelModule: true},
	}
}

// Register adds a kernel spec. An existing id is replaced. Multiple
// ids may alias the same module/function pair.
func (r *Registry) Register(spec *Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kernels[spec.ID] = spec
}

// Resolve looks up an id and returns an invocable binding with a fresh
// copy of the default parameters. It returns *UnknownKernelError for
// an unregistered id and *BindingError for a registered entry whose
// implementation is missing.
func (r *Registry) Resolve(id string) (*Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.kernels[id]
	if !ok {
		return nil, &UnknownKernelError{ID: id, Known: r.idsLocked()}
	}
	if !r.modules[spec.Module] {
		return nil, &BindingError{ID: id, Module: spec.Module, Function: spec.Function, ModuleMissing: true}
	}
	if spec.Smooth == nil {
		return nil, &BindingError{ID: id, Module: spec.Module, Function: spec.Function}
	}

	defaults := make(map[string]float64, len(spec.Defaults))
	for k, v := range spec.Defaults {
		defaults[k] = v
	}
	return &Binding{
		ID:       id,
		Module:   spec.Module,
		Function: spec.Function,
		Defaults: defaults,
		Smooth:   spec.Smooth,
	}, nil
}

// MergeDefaults overlays parameter overrides onto a registered spec's
// defaults. Aliases share the defaults map, so overriding a canonical
// id and overriding its alias are equivalent. Returns *UnknownKernelError for
// an unregistered id.
func (r *Registry) MergeDefaults(id string, overrides map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec, ok := r.kernels[id]
	if !ok {
		return &UnknownKernelError{ID: id, Known: r.idsLocked()}
	}
	if spec.Defaults == nil {
		spec.Defaults = make(map[string]float64, len(overrides))
	}
	for k, v := range overrides {
		spec.Defaults[k] = v
	}
	return nil
}

// IDs returns all registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsLocked()
}

// List returns a sorted summary of every registered kernel.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.kernels))
	for _, spec := range r.kernels {
		defaults := make(map[string]float64, len(spec.Defaults))
		for k, v := range spec.Defaults {
			defaults[k] = v
		}
		infos = append(infos, Info{
			ID:          spec.ID,
			Module:      spec.Module,
			Function:    spec.Function,
			Description: spec.Description,
			Defaults:    defaults,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (r *Registry) idsLocked() []string {
	ids := make([]string, 0, len(r.kernels))
	for id := range r.kernels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry returns a registry pre-loaded with the built-in
// kernels and their aliases. An alias copies its canonical spec and
// shares its defaults map and entry point, so the two can never
// disagree on module, function or parameter values.
func DefaultRegistry() *Registry {
	reg := NewRegistry()

	register := func(spec *Spec, aliases ...string) {
		reg.Register(spec)
		for _, alias := range aliases {
			aliased := *spec
			aliased.ID = alias
			reg.Register(&aliased)
		}
	}

	register(&Spec{
		ID:          "k1",
		Module:      KernelModule,
		Function:    "GradientLimited",
		Description: "Repeated 4-neighbour averaging; the noise-reduction baseline.",
		Defaults:    map[string]float64{"passes": 3},
		Smooth:      GradientLimited,
	}, "gradient_limited", "baseline")

	register(&Spec{
		ID:          "k2",
		Module:      KernelModule,
		Function:    "CoverageClamp",
		Description: "Averaging followed by a coverage-tiered clamp: well-sampled cells keep tight deviation limits.",
		Defaults:    map[string]float64{"passes": 2, "clamp_lo": 7.0, "clamp_hi": 15.0},
		Smooth:      CoverageClamp,
	}, "coverage_clamp")

	register(&Spec{
		ID:          "k3",
		Module:      KernelModule,
		Function:    "Bilateral",
		Description: "Magnitude-gated bilateral averaging with a three-band hit-tier clamp; preserves large corrections as signal.",
		Defaults: map[string]float64{
			"passes": 2, "sigma": 2.0, "self_weight": 2.0,
			"gate_lo": 5.0, "gate_hi": 12.0,
			"clamp_tight": 3.0, "clamp_med": 6.0, "clamp_loose": 10.0,
			"hits_lo": 3, "hits_hi": 8,
		},
		Smooth: Bilateral,
	}, "bilateral")

	register(&Spec{
		ID:          "knock",
		Module:      KernelModule,
		Function:    "KnockAware",
		Description: "Gates pass count on neighbourhood mean |correction| so clusters of large corrections are preserved.",
		Defaults:    map[string]float64{"passes": 3, "gate_lo": 5.0, "gate_hi": 12.0},
		Smooth:      KnockAware,
	}, "knock_aware")

	register(&Spec{
		ID:          "cw",
		Module:      KernelModule,
		Function:    "CoverageWeighted",
		Description: "Confidence-weighted mean-field averaging; low-hit cells are excluded entirely.",
		Defaults:    map[string]float64{"passes": 1, "alpha": 0.5, "min_hits": 2},
		Smooth:      CoverageWeighted,
	}, "coverage_weighted")

	register(&Spec{
		ID:          "av",
		Module:      KernelModule,
		Function:    "AdaptiveVariance",
		Description: "Per-cell pass count from local mean-absolute-deviation; noisy regions get extra passes, stable ones none.",
		Defaults:    map[string]float64{"base_passes": 2, "mad_lo": 1.0, "mad_hi": 4.0},
		Smooth:      AdaptiveVariance,
	}, "adaptive_variance")

	return reg
}
