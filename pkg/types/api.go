package types

import "time"

// LoRA references an adapter to apply on top of the base model.
type LoRA struct {
	// Path or hub id of the adapter weights.
	// example: loras/pixel-art.safetensors
	Path string `json:"path" example:"loras/pixel-art.safetensors"`
	// Blend weight.
	// example: 0.8
	Weight float64 `json:"weight,omitempty" example:"0.8"`
	// Optional adapter name; defaults to the file stem.
	// example: pixel-art
	Name string `json:"name,omitempty" example:"pixel-art"`
}

// GenerateRequest is the payload accepted by POST /generate.
// Zero values are replaced by server defaults before validation.
type GenerateRequest struct {
	// Required prompt text.
	// example: a cat sitting on a windowsill
	Prompt string `json:"prompt" example:"a cat sitting on a windowsill"`
	// Things the image should avoid.
	// example: blurry, low quality
	NegativePrompt string `json:"negative_prompt,omitempty" example:"blurry, low quality"`
	// Requested width in pixels (64-2048). Rounded down to a multiple of 8.
	// example: 512
	Width int `json:"width,omitempty" example:"512"`
	// Requested height in pixels (64-2048). Rounded down to a multiple of 8.
	// example: 512
	Height int `json:"height,omitempty" example:"512"`
	// Denoising steps (1-150).
	// example: 20
	Steps int `json:"steps,omitempty" example:"20"`
	// Classifier-free guidance scale (1-30).
	// example: 7.5
	CFGScale float64 `json:"cfg_scale,omitempty" example:"7.5"`
	// Sampler name as listed by GET /samplers.
	// example: DPM++ 2M Karras
	Sampler string `json:"sampler,omitempty" example:"DPM++ 2M Karras"`
	// Seed; -1 or omitted picks a random seed once at submission.
	// example: -1
	Seed *int64 `json:"seed,omitempty" example:"-1"`
	// Number of images to generate (1-4).
	// example: 1
	BatchSize int `json:"batch_size,omitempty" example:"1"`
	// Model reference: local path or hub id. Empty uses the server default.
	// example: runwayml/stable-diffusion-v1-5
	Model string `json:"model,omitempty" example:"runwayml/stable-diffusion-v1-5"`
	// Adapters to apply.
	LoRAs []LoRA `json:"loras,omitempty"`
	// Base64 encoded init image for img2img.
	InitImage string `json:"init_image,omitempty"`
	// How far the result may move away from the init image (0-1).
	// example: 0.75
	Strength *float64 `json:"strength,omitempty" example:"0.75"`
	// Number of final text encoder layers to skip (1-12).
	// example: 1
	ClipSkip int `json:"clip_skip,omitempty" example:"1"`
	// Use the latent consistency scheduler; steps are capped at 8.
	// example: false
	EnableLCM bool `json:"enable_lcm,omitempty" example:"false"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	// example: 4f9a7c1e-2b0d-4a57-9d0e-6a3c2f1b8e77
	JobID string `json:"job_id" example:"4f9a7c1e-2b0d-4a57-9d0e-6a3c2f1b8e77"`
	// example: accepted
	Status string `json:"status" example:"accepted"`
	// example: Generation job queued successfully
	Message string `json:"message" example:"Generation job queued successfully"`
}

// ImageResult describes one generated image.
type ImageResult struct {
	// example: 0b5e4c1d-5f8a-4b55-8a51-3b1d0a4f7e21
	ImageID string `json:"image_id" example:"0b5e4c1d-5f8a-4b55-8a51-3b1d0a4f7e21"`
	// Relative URL served by GET /image/{path}.
	// example: /image/0b5e4c1d-5f8a-4b55-8a51-3b1d0a4f7e21.png
	ImageURL string `json:"image_url" example:"/image/0b5e4c1d-5f8a-4b55-8a51-3b1d0a4f7e21.png"`
	// Path relative to the outputs directory.
	// example: 0b5e4c1d-5f8a-4b55-8a51-3b1d0a4f7e21.png
	Path string `json:"path" example:"0b5e4c1d-5f8a-4b55-8a51-3b1d0a4f7e21.png"`
	// example: 1234567
	Seed int64 `json:"seed" example:"1234567"`
	// example: 512
	Width int `json:"width" example:"512"`
	// example: 512
	Height int `json:"height" example:"512"`
	// Parameters echoed back, including requested and resolved dimensions.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// JobStatusResponse is returned by GET /job/{id}.
type JobStatusResponse struct {
	// example: 4f9a7c1e-2b0d-4a57-9d0e-6a3c2f1b8e77
	JobID string `json:"job_id" example:"4f9a7c1e-2b0d-4a57-9d0e-6a3c2f1b8e77"`
	// One of pending, processing, completed, failed.
	// example: processing
	Status JobState `json:"status" example:"processing"`
	// Percentage in [0,100].
	// example: 45
	Progress float64 `json:"progress" example:"45"`
	// example: 9
	CurrentStep int `json:"current_step" example:"9"`
	// example: 20
	TotalSteps int `json:"total_steps" example:"20"`
	Message string `json:"message,omitempty"`
	// Image URLs, set once the job completes.
	Results []string `json:"results,omitempty"`
	// Full per-image detail, set once the job completes.
	Images []ImageResult `json:"images,omitempty"`
	// Failure reason, set once the job fails.
	Error string `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: Inference service is running
	Message string `json:"message" example:"Inference service is running"`
	ModelsLoaded []string `json:"models_loaded"`
	// example: cpu
	Device string `json:"device" example:"cpu"`
	// Seconds since the service started.
	// example: 3600
	UptimeSeconds float64 `json:"uptime_seconds" example:"3600"`
	// Retained jobs per state.
	Jobs map[string]int `json:"jobs,omitempty"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	// Refs of models currently held in memory.
	Loaded []string `json:"loaded"`
	// Models discovered in the models directory.
	Available []Model `json:"available"`
}

// SamplersResponse is returned by GET /samplers.
type SamplersResponse struct {
	Samplers    []string `json:"samplers"`
	LCMSamplers []string `json:"lcm_samplers"`
}

// LoadModelResponse is returned by POST /load-model.
type LoadModelResponse struct {
	// example: success
	Status string `json:"status" example:"success"`
	// example: Model runwayml/stable-diffusion-v1-5 loaded successfully
	Message string `json:"message" example:"Model runwayml/stable-diffusion-v1-5 loaded successfully"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
