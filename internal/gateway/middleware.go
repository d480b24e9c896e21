package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	decryptFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "gateway",
		Name:      "decrypt_failures_total",
		Help:      "Requests rejected because the body could not be decrypted",
	})
	messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "gateway",
		Name:      "messages_total",
		Help:      "Encrypted message bodies handled by direction",
	}, []string{"direction"})
)

func init() {
	prometheus.MustRegister(decryptFailures, messagesTotal)
}

// DefaultExempt lists paths that are never encrypted. Entries ending in '/'
// match as prefixes.
var DefaultExempt = []string{"/health", "/metrics", "/swagger/"}

// Options configures Middleware.
type Options struct {
	// Exempt paths bypass the gateway entirely. Nil means DefaultExempt.
	Exempt []string
	// MaxBodyBytes bounds the encrypted request body. Zero means 1 MiB.
	MaxBodyBytes int64
	Log          zerolog.Logger
}

func (o Options) exempt(path string) bool {
	list := o.Exempt
	if list == nil {
		list = DefaultExempt
	}
	for _, e := range list {
		if strings.HasSuffix(e, "/") {
			if strings.HasPrefix(path, e) {
				return true
			}
			continue
		}
		if path == e {
			return true
		}
	}
	return false
}

// Middleware decrypts inbound bodies marked with X-Encrypted: true and
// encrypts every non-exempt response. When c is disabled it is a pass-through.
// Failures raised here are answered in plaintext and never reach next.
func Middleware(c *Cipher, opts Options) func(http.Handler) http.Handler {
	limit := opts.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	return func(next http.Handler) http.Handler {
		if !c.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.EqualFold(r.Header.Get(HeaderEncrypted), "true") {
				// base64 inflates by 4/3
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit*4/3+64))
				if err != nil {
					decryptFailures.Inc()
					writePlainError(w, http.StatusBadRequest, "failed to read encrypted body")
					return
				}
				plain, err := c.Decrypt(body)
				if err != nil {
					decryptFailures.Inc()
					opts.Log.Warn().Err(err).Str("path", r.URL.Path).Msg("rejecting undecryptable request")
					writePlainError(w, http.StatusBadRequest, "failed to decrypt request body")
					return
				}
				messagesTotal.WithLabelValues("in").Inc()
				r.Body = io.NopCloser(bytes.NewReader(plain))
				r.ContentLength = int64(len(plain))
				r.Header.Set("Content-Type", "application/json")
				r.Header.Set("Content-Length", strconv.Itoa(len(plain)))
				r.Header.Del(HeaderEncrypted)
			}

			bw := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(bw, r)

			enc, err := c.Encrypt(bw.buf.Bytes())
			if err != nil {
				opts.Log.Error().Err(err).Str("path", r.URL.Path).Msg("encrypt response")
				w.Header().Del("Content-Length")
				writePlainError(w, http.StatusInternalServerError, "failed to encrypt response")
				return
			}
			messagesTotal.WithLabelValues("out").Inc()
			h := w.Header()
			h.Set(HeaderEncrypted, "true")
			h.Set("Content-Type", "application/octet-stream")
			h.Set("Content-Length", strconv.Itoa(len(enc)))
			w.WriteHeader(bw.status)
			_, _ = w.Write(enc)
		})
	}
}

// bufferedWriter captures the status and body so they can be encrypted as a
// single message. Headers go straight to the underlying writer.
type bufferedWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.status = code
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.buf.Write(p)
}

func writePlainError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "code": status})
}
