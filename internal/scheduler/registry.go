// Package scheduler maps user-facing sampler names to the solver family and
// parameter overrides a backend needs to configure its noise scheduler.
package scheduler

import (
	"sort"

	"github.com/rs/zerolog"
)

// Solver identifies a scheduler implementation family.
type Solver string

const (
	// SolverModelDefault means "keep whatever scheduler the model ships with".
	SolverModelDefault Solver = ""

	SolverDPMMultistep   Solver = "dpm_solver_multistep"
	SolverDPMSinglestep  Solver = "dpm_solver_singlestep"
	SolverEuler          Solver = "euler_discrete"
	SolverEulerAncestral Solver = "euler_ancestral_discrete"
	SolverHeun           Solver = "heun_discrete"
	SolverKDPM2          Solver = "kdpm2_discrete"
	SolverKDPM2Ancestral Solver = "kdpm2_ancestral_discrete"
	SolverLMS            Solver = "lms_discrete"
	SolverDDIM           Solver = "ddim"
	SolverPNDM           Solver = "pndm"
	SolverUniPC          Solver = "unipc_multistep"
	SolverLCM            Solver = "lcm"
)

// Spec is an immutable sampler description.
type Spec struct {
	Name      string
	Solver    Solver
	Overrides map[string]string
}

// ModelDefault reports whether the spec defers to the model's own scheduler.
func (s Spec) ModelDefault() bool { return s.Solver == SolverModelDefault }

// IsLCM reports whether the spec drives a latent consistency scheduler.
func (s Spec) IsLCM() bool { return s.Solver == SolverLCM }

func (s Spec) clone() Spec {
	out := Spec{Name: s.Name, Solver: s.Solver}
	if len(s.Overrides) > 0 {
		out.Overrides = make(map[string]string, len(s.Overrides))
		for k, v := range s.Overrides {
			out.Overrides[k] = v
		}
	}
	return out
}

// LCMName is the canonical name of the latent consistency sampler.
const LCMName = "LCM"

// DefaultName is the sampler used when a request omits one.
const DefaultName = "DPM++ 2M Karras"

var karras = map[string]string{"use_karras_sigmas": "true"}

func with(base map[string]string, kv ...string) map[string]string {
	out := make(map[string]string, len(base)+len(kv)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// builtin is the static sampler table. Order is the catalogue order.
var builtin = []Spec{
	{Name: "DPM++ 2M Karras", Solver: SolverDPMMultistep, Overrides: karras},
	{Name: "DPM++ 2M SDE Karras", Solver: SolverDPMMultistep, Overrides: with(karras, "algorithm_type", "sde-dpmsolver++")},
	{Name: "DPM++ SDE Karras", Solver: SolverDPMMultistep, Overrides: with(karras, "algorithm_type", "sde-dpmsolver++")},
	{Name: "DPM++ 2M", Solver: SolverDPMMultistep},
	{Name: "DPM++ 2S a", Solver: SolverDPMSinglestep},
	{Name: "Euler a", Solver: SolverEulerAncestral},
	{Name: "Euler", Solver: SolverEuler},
	{Name: "Heun", Solver: SolverHeun},
	{Name: "DPM2", Solver: SolverKDPM2},
	{Name: "DPM2 a", Solver: SolverKDPM2Ancestral},
	{Name: "LMS", Solver: SolverLMS},
	{Name: "LMS Karras", Solver: SolverLMS, Overrides: karras},
	{Name: "DDIM", Solver: SolverDDIM},
	{Name: "PNDM", Solver: SolverPNDM},
	{Name: "PLMS", Solver: SolverPNDM, Overrides: map[string]string{"skip_prk_steps": "true"}},
	{Name: "UniPC", Solver: SolverUniPC},
}

var builtinLCM = []Spec{
	{Name: LCMName, Solver: SolverLCM},
	{Name: "LCM Karras", Solver: SolverLCM, Overrides: karras},
}

// Registry resolves sampler names. It is read-only after construction and
// safe for concurrent use.
type Registry struct {
	specs map[string]Spec
	order []string
	lcm   []string
	log   zerolog.Logger
}

// NewRegistry builds the registry from the built-in table.
func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{specs: make(map[string]Spec, len(builtin)+len(builtinLCM)), log: log}
	for _, s := range builtin {
		r.specs[s.Name] = s
		r.order = append(r.order, s.Name)
	}
	for _, s := range builtinLCM {
		r.specs[s.Name] = s
		r.lcm = append(r.lcm, s.Name)
	}
	return r
}

// Resolve returns the spec registered under name. Unknown names resolve to
// the model-default spec and are logged; they are never an error.
func (r *Registry) Resolve(name string) Spec {
	if s, ok := r.specs[name]; ok {
		return s.clone()
	}
	r.log.Warn().Str("sampler", name).Msg("unknown sampler, using model default scheduler")
	return Spec{Name: name, Solver: SolverModelDefault}
}

// Known reports whether name is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// LCM returns the canonical latent consistency spec.
func (r *Registry) LCM() Spec { return r.specs[LCMName].clone() }

// Names lists the regular samplers in catalogue order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }

// LCMNames lists the latent consistency samplers.
func (r *Registry) LCMNames() []string { return append([]string(nil), r.lcm...) }

// Solvers returns the distinct solver families referenced by the table.
func (r *Registry) Solvers() []Solver {
	seen := map[Solver]struct{}{}
	for _, s := range r.specs {
		seen[s.Solver] = struct{}{}
	}
	out := make([]Solver, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
