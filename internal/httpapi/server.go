package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"imaged/internal/gateway"
	"imaged/internal/manager"
	"imaged/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Health() (types.HealthResponse, bool)
	Submit(ctx context.Context, req types.GenerateRequest) (manager.SubmitResult, error)
	JobStatus(id string) (types.JobStatusResponse, error)
	LoadModel(ctx context.Context, path, typ string, reload bool) (types.LoadModelResponse, error)
	ListModels() (types.ModelsResponse, error)
	Samplers() types.SamplersResponse
	OpenImage(rel string) (*os.File, os.FileInfo, error)
}

type handlers struct{ svc Service }

func NewMux(svc Service) http.Handler {
	h := handlers{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: append(append([]string(nil), corsAllowedHeaders...), gateway.HeaderEncrypted),
			ExposedHeaders: []string{gateway.HeaderEncrypted},
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)
	r.Use(gateway.Middleware(cipher, gateway.Options{MaxBodyBytes: maxBodyBytes, Log: gatewayLogger()}))

	r.Get("/health", h.health)
	r.Post("/generate", h.generate)
	r.Get("/job/{id}", h.job)
	r.Post("/load-model", h.loadModel)
	r.Get("/models", h.models)
	r.Get("/samplers", h.samplers)
	r.Get("/image/*", h.image)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func gatewayLogger() zerolog.Logger {
	if zlog != nil {
		return zlog.With().Str("component", "gateway").Logger()
	}
	return zerolog.Nop()
}

// health godoc
// @Summary      Service health
// @Tags         system
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /health [get]
func (h handlers) health(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.svc.Health()
	if !ok {
		IncrementRejection("not_ready")
		writeJSONError(w, http.StatusServiceUnavailable, resp.Message)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// generate godoc
// @Summary      Submit a generation job
// @Description  Returns immediately with a job id. An identical request inside the dedup window returns the existing job id.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        request  body      types.GenerateRequest  true  "Generation parameters"
// @Success      200      {object}  types.GenerateResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /generate [post]
func (h handlers) generate(w http.ResponseWriter, r *http.Request) {
	// Content-Type check
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		IncrementRejection("unsupported_media_type")
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		IncrementRejection("bad_request")
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	res, err := h.svc.Submit(ctx, req)
	if err != nil {
		if writeError(w, err) == http.StatusServiceUnavailable {
			IncrementRejection("not_ready")
		}
		return
	}
	writeJSON(w, http.StatusOK, types.GenerateResponse{JobID: res.JobID, Status: "accepted", Message: res.Message})
}

// job godoc
// @Summary      Job status
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job id"
// @Success      200  {object}  types.JobStatusResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /job/{id} [get]
func (h handlers) job(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.JobStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// loadModel godoc
// @Summary      Load a model
// @Description  Resolves a local path or hub id and makes it the current model.
// @Tags         models
// @Produce      json
// @Param        model_path  query     string  true   "Local path or hub id"
// @Param        model_type  query     string  false  "Format or family hint (safetensors, ckpt, diffusers, sd15, sdxl)"
// @Param        reload      query     bool    false  "Discard a cached handle and load again"
// @Success      200         {object}  types.LoadModelResponse
// @Failure      400         {object}  types.ErrorResponse
// @Failure      503         {object}  types.ErrorResponse
// @Failure      504         {object}  types.ErrorResponse
// @Router       /load-model [post]
func (h handlers) loadModel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reload := false
	if v := q.Get("reload"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "reload must be a boolean")
			return
		}
		reload = b
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if loadTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, loadTimeout)
		defer tcancel()
	}
	resp, err := h.svc.LoadModel(ctx, q.Get("model_path"), q.Get("model_type"), reload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// models godoc
// @Summary      Loaded and available models
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /models [get]
func (h handlers) models(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ListModels()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// samplers godoc
// @Summary      Sampler catalogue
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.SamplersResponse
// @Router       /samplers [get]
func (h handlers) samplers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Samplers())
}

// image godoc
// @Summary      Generated image
// @Tags         jobs
// @Produce      png
// @Param        path  path  string  true  "Image path relative to the outputs directory"
// @Success      200
// @Failure      404  {object}  types.ErrorResponse
// @Router       /image/{path} [get]
func (h handlers) image(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	f, st, err := h.svc.OpenImage(rel)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "image not found")
		return
	}
	defer f.Close()
	if strings.EqualFold(path.Ext(rel), ".png") {
		w.Header().Set("Content-Type", "image/png")
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, st.Name(), modTime(st), f)
}

func modTime(st os.FileInfo) time.Time {
	if st == nil {
		return time.Time{}
	}
	return st.ModTime()
}
