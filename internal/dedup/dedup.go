// Package dedup remembers recent generation requests by fingerprint so that
// identical submissions inside a short window map to the same job.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"imaged/pkg/types"
)

// DefaultWindow is how long a fingerprint stays live.
const DefaultWindow = 30 * time.Second

// Store maps fingerprints to job ids for a bounded window.
// Implementations must be safe for concurrent use.
type Store interface {
	// Lookup returns the job id remembered for fp, if still live.
	Lookup(ctx context.Context, fp string) (string, bool, error)
	// Remember records fp -> jobID, replacing any previous entry.
	Remember(ctx context.Context, fp, jobID string) error
	// ForgetJob drops every entry that references jobID.
	ForgetJob(ctx context.Context, jobID string) error
	// Sweep evicts expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

// fingerprintFields fixes the field order of the canonical encoding.
type fingerprintFields struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	Sampler        string  `json:"sampler"`
	Model          string  `json:"model"`
}

// Fingerprint is the hex SHA-256 of the canonical JSON of the significant
// request fields. Seed, batch size, adapters and init image are not part of
// it. Width and height are taken as requested, before rounding.
func Fingerprint(req types.GenerateRequest) string {
	b, _ := json.Marshal(fingerprintFields{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		Steps:          req.Steps,
		CFGScale:       req.CFGScale,
		Sampler:        req.Sampler,
		Model:          req.Model,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
