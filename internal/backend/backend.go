// Package backend defines the narrow contract between the job orchestration
// layer and the component that actually synthesizes images.
//
//   - backend.go: Backend contract, descriptors, params and results.
//   - synthetic.go: in-process renderer used for development and tests.
//   - render.go: deterministic PNG rendering helpers for the synthetic backend.
//   - remote.go: forwards loads and generations to a remote worker over HTTP.
package backend

import (
	"context"
	"errors"

	"imaged/internal/scheduler"
	"imaged/pkg/types"
)

var (
	// ErrNotReady is returned while the backend has not finished initializing.
	ErrNotReady = errors.New("backend: not ready")
	// ErrModelNotFound is returned when a local model path does not exist.
	ErrModelNotFound = errors.New("backend: model not found")
	// ErrUnsupportedModel is returned when a descriptor cannot be served.
	ErrUnsupportedModel = errors.New("backend: unsupported model")
)

// Source tells whether a model lives on disk or on a remote hub.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Layout is the on-disk shape of the model.
type Layout string

const (
	LayoutSingleFile Layout = "single_file"
	LayoutBundle     Layout = "bundle"
	LayoutHub        Layout = "hub"
)

// Format is the weight serialization.
type Format string

const (
	FormatSafetensors Format = "safetensors"
	FormatCkpt        Format = "ckpt"
	FormatBin         Format = "bin"
	FormatDiffusers   Format = "diffusers"
)

// Family is the architecture family the weights belong to.
type Family string

const (
	FamilyBase    Family = "sd15"
	FamilyLarge   Family = "sdxl"
	FamilyGeneric Family = "generic"
)

// Pipeline returns the pipeline class a backend should instantiate.
func (f Family) Pipeline() string {
	switch f {
	case FamilyBase:
		return "StableDiffusionPipeline"
	case FamilyLarge:
		return "StableDiffusionXLPipeline"
	default:
		return "DiffusionPipeline"
	}
}

// Descriptor tells the backend what to load and how.
type Descriptor struct {
	Ref      string
	Source   Source
	Layout   Layout
	Format   Format
	Family   Family
	Pipeline string
	// Strategy is a human readable label of the attempt that produced this descriptor.
	Strategy string
}

// Model is an opaque loaded model handle. Handles are shared read-only
// between concurrent generations.
type Model interface {
	Descriptor() Descriptor
}

// ProgressSink receives per-step progress from a running generation.
type ProgressSink interface {
	Step(step, total int)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(step, total int)

func (f ProgressFunc) Step(step, total int) { f(step, total) }

// Params are fully resolved generation parameters. Width and Height are
// already multiples of 8 and Seed is fixed.
type Params struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	CFGScale       float64
	Seed           int64
	BatchSize      int
	Scheduler      scheduler.Spec
	LoRAs          []types.LoRA
	InitImage      []byte
	Strength       float64
	ClipSkip       int
}

// ImageResult is one generated image.
type ImageResult struct {
	Data     []byte
	Seed     int64
	Width    int
	Height   int
	Metadata map[string]string
}

// Backend loads models and runs generations.
type Backend interface {
	Ready() bool
	Device() string
	LoadModel(ctx context.Context, d Descriptor) (Model, error)
	RunGeneration(ctx context.Context, m Model, p Params, sink ProgressSink) ([]ImageResult, error)
}

type handle struct{ d Descriptor }

func (h handle) Descriptor() Descriptor { return h.d }

// NewHandle wraps a descriptor as a Model. Useful for backends that keep no
// extra per-model state.
func NewHandle(d Descriptor) Model { return handle{d: d} }
