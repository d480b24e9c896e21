package resolver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imaged/internal/backend"
)

// FamilyDetector guesses the architecture family of a raw checkpoint.
// Detection only runs when the caller gave no explicit family hint.
type FamilyDetector interface {
	Name() string
	Detect(path string) (backend.Family, error)
}

// Marker tensors only present in large-family checkpoints.
var largeFamilyMarkers = []string{
	"conditioner.embedders.0.transformer.text_model.embeddings.position_embedding.weight",
	"conditioner.embedders.1.model.ln_final.weight",
}

const firstInputBlock = "model.diffusion_model.input_blocks.0.0.weight"

// ChannelSniffer is a heuristic: marker tensors select the large family,
// otherwise dimension 1 of the first UNet input convolution decides
// (9 channels large, 4 channels base). Anything else is treated as base.
type ChannelSniffer struct{}

func (ChannelSniffer) Name() string { return "channel-sniffer" }

func (ChannelSniffer) Detect(path string) (backend.Family, error) {
	hdr, err := ReadSafetensorsHeader(path)
	if err != nil {
		return "", err
	}
	return familyFromHeader(hdr), nil
}

func familyFromHeader(hdr map[string]TensorInfo) backend.Family {
	for _, marker := range largeFamilyMarkers {
		for k := range hdr {
			if strings.HasPrefix(k, marker) {
				return backend.FamilyLarge
			}
		}
	}
	for k, ti := range hdr {
		if !strings.Contains(k, firstInputBlock) || len(ti.Shape) < 2 {
			continue
		}
		switch ti.Shape[1] {
		case 9:
			return backend.FamilyLarge
		case 4:
			return backend.FamilyBase
		}
	}
	return backend.FamilyBase
}

// bundleFamily reads model_index.json of a diffusers directory.
func bundleFamily(dir string) (backend.Family, string, error) {
	b, err := os.ReadFile(filepath.Join(dir, "model_index.json"))
	if err != nil {
		return "", "", fmt.Errorf("read model_index.json: %w", err)
	}
	var idx struct {
		ClassName string `json:"_class_name"`
	}
	if err := json.Unmarshal(b, &idx); err != nil {
		return "", "", fmt.Errorf("decode model_index.json: %w", err)
	}
	switch {
	case strings.Contains(idx.ClassName, "XL"):
		return backend.FamilyLarge, idx.ClassName, nil
	case idx.ClassName == "StableDiffusionPipeline":
		return backend.FamilyBase, idx.ClassName, nil
	default:
		return backend.FamilyGeneric, idx.ClassName, nil
	}
}
