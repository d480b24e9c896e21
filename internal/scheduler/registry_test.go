package scheduler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestResolveKnown(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	s := r.Resolve("DPM++ 2M SDE Karras")
	if s.Solver != SolverDPMMultistep {
		t.Fatalf("solver=%q", s.Solver)
	}
	if s.Overrides["use_karras_sigmas"] != "true" || s.Overrides["algorithm_type"] != "sde-dpmsolver++" {
		t.Fatalf("unexpected overrides: %v", s.Overrides)
	}
	if s.ModelDefault() {
		t.Fatalf("known sampler must not defer to model default")
	}
}

func TestResolveUnknownFallsBackAndWarns(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(zerolog.New(&buf))
	s := r.Resolve("Turbo Nonsense")
	if !s.ModelDefault() {
		t.Fatalf("expected model default, got %+v", s)
	}
	if s.Name != "Turbo Nonsense" {
		t.Fatalf("name should be echoed, got %q", s.Name)
	}
	if !strings.Contains(buf.String(), "unknown sampler") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
}

func TestResolveReturnsCopies(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	s := r.Resolve("LMS Karras")
	s.Overrides["use_karras_sigmas"] = "false"
	if got := r.Resolve("LMS Karras").Overrides["use_karras_sigmas"]; got != "true" {
		t.Fatalf("registry mutated through returned spec: %q", got)
	}
}

func TestCatalogue(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	names := r.Names()
	if len(names) == 0 || names[0] != DefaultName {
		t.Fatalf("catalogue should start with the default sampler: %v", names)
	}
	for _, n := range names {
		if !r.Known(n) {
			t.Fatalf("catalogue entry %q does not resolve", n)
		}
	}
	lcm := r.LCMNames()
	if len(lcm) != 2 || lcm[0] != "LCM" || lcm[1] != "LCM Karras" {
		t.Fatalf("lcm samplers=%v", lcm)
	}
	if !r.LCM().IsLCM() {
		t.Fatalf("LCM spec should report IsLCM")
	}
}

func TestSolversDistinctSorted(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	ss := r.Solvers()
	for i := 1; i < len(ss); i++ {
		if ss[i-1] >= ss[i] {
			t.Fatalf("not sorted/distinct: %v", ss)
		}
	}
}
