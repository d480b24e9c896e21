package manager

import (
	"encoding/base64"
	"fmt"
	"strings"

	"imaged/internal/scheduler"
	"imaged/pkg/types"
)

// Request defaults.
const (
	DefaultWidth    = 512
	DefaultHeight   = 512
	DefaultSteps    = 20
	DefaultCFGScale = 7.5
	DefaultBatch    = 1
	DefaultClipSkip = 1
	DefaultStrength = 0.75
	RandomSeed      = int64(-1)

	// MaxLCMSteps caps steps when the latent consistency scheduler is forced.
	MaxLCMSteps = 8
)

const (
	minDim, maxDim           = 64, 2048
	minSteps, maxSteps       = 1, 150
	minCFG, maxCFG           = 1.0, 30.0
	minBatch, maxBatch       = 1, 4
	minClipSkip, maxClipSkip = 1, 12
)

// normalize fills zero values with defaults and checks bounds. The returned
// request is what gets fingerprinted and stored on the job.
func normalize(req types.GenerateRequest) (types.GenerateRequest, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return req, invalid("prompt is required")
	}
	if req.Width == 0 {
		req.Width = DefaultWidth
	}
	if req.Height == 0 {
		req.Height = DefaultHeight
	}
	if req.Steps == 0 {
		req.Steps = DefaultSteps
	}
	if req.CFGScale == 0 {
		req.CFGScale = DefaultCFGScale
	}
	if strings.TrimSpace(req.Sampler) == "" {
		req.Sampler = scheduler.DefaultName
	}
	if req.BatchSize == 0 {
		req.BatchSize = DefaultBatch
	}
	if req.ClipSkip == 0 {
		req.ClipSkip = DefaultClipSkip
	}
	req.Model = strings.TrimSpace(req.Model)

	if req.Width < minDim || req.Width > maxDim {
		return req, invalid(fmt.Sprintf("width must be between %d and %d", minDim, maxDim))
	}
	if req.Height < minDim || req.Height > maxDim {
		return req, invalid(fmt.Sprintf("height must be between %d and %d", minDim, maxDim))
	}
	if req.Steps < minSteps || req.Steps > maxSteps {
		return req, invalid(fmt.Sprintf("steps must be between %d and %d", minSteps, maxSteps))
	}
	if req.CFGScale < minCFG || req.CFGScale > maxCFG {
		return req, invalid(fmt.Sprintf("cfg_scale must be between %g and %g", minCFG, maxCFG))
	}
	if req.BatchSize < minBatch || req.BatchSize > maxBatch {
		return req, invalid(fmt.Sprintf("batch_size must be between %d and %d", minBatch, maxBatch))
	}
	if req.ClipSkip < minClipSkip || req.ClipSkip > maxClipSkip {
		return req, invalid(fmt.Sprintf("clip_skip must be between %d and %d", minClipSkip, maxClipSkip))
	}
	if req.Seed != nil && *req.Seed < RandomSeed {
		return req, invalid("seed must be -1 or non-negative")
	}
	if req.Strength != nil && (*req.Strength < 0 || *req.Strength > 1) {
		return req, invalid("strength must be between 0 and 1")
	}
	if req.InitImage != "" {
		if _, err := decodeInitImage(req.InitImage); err != nil {
			return req, invalid("init_image is not valid base64")
		}
	}
	req.LoRAs = append([]types.LoRA(nil), req.LoRAs...)
	for i, l := range req.LoRAs {
		if strings.TrimSpace(l.Path) == "" {
			return req, invalid(fmt.Sprintf("loras[%d].path is required", i))
		}
		if l.Weight == 0 {
			req.LoRAs[i].Weight = 1
		}
	}
	return req, nil
}

// effectiveSteps applies the LCM cap.
func effectiveSteps(req types.GenerateRequest) int {
	if req.EnableLCM && req.Steps > MaxLCMSteps {
		return MaxLCMSteps
	}
	return req.Steps
}

// roundDown8 rounds a dimension down to a multiple of 8.
func roundDown8(v int) int { return v / 8 * 8 }

// decodeInitImage accepts plain base64 or a data URL.
func decodeInitImage(s string) ([]byte, error) {
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
