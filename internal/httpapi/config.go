package httpapi

import (
	"time"

	"imaged/internal/gateway"
)

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
// Default is 16 MiB so base64 init images fit.
var maxBodyBytes int64 = 16 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 16 << 20
		return
	}
	maxBodyBytes = n
}

// loadTimeout bounds a /load-model request. Zero means no additional
// timeout beyond server/connection timeouts.
var loadTimeout time.Duration

// SetLoadTimeout sets the /load-model timeout (0 disables).
func SetLoadTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	loadTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// cipher encrypts payloads between client and server. Nil disables it.
var cipher *gateway.Cipher

// SetCipher installs the payload cipher used by the gateway middleware.
func SetCipher(c *gateway.Cipher) { cipher = c }
