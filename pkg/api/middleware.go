// Package api provides HTTP middleware components for the Agent Arena.
// Includes HMAC authentication, request logging, CORS, body size limits,
// JSON error responses and health checks.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"agent-arena/pkg/auth"
	"agent-arena/pkg/logger"
	"agent-arena/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxRequestSize  = 1 * 1024 * 1024 // Maximum accepted request body: 1MB
	RequestIDHeader = "X-Request-ID"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	callerKey
)

// NonceStore remembers nonces that were already used to sign a request.
type NonceStore interface {
	HasSeenNonce(nonce string) (bool, error)
	SaveNonce(nonce string) error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Middleware provides HTTP middleware with HMAC authentication and request logging.
type Middleware struct {
	hmacAuth *auth.HMACAuth
	nonces   NonceStore
}

// NewMiddleware creates a middleware set verifying signatures with hmacAuth
// and rejecting replayed nonces through nonces.
func NewMiddleware(hmacAuth *auth.HMACAuth, nonces NonceStore) *Middleware {
	return &Middleware{
		hmacAuth: hmacAuth,
		nonces:   nonces,
	}
}

// RequestID returns the request ID assigned by RequestLogging.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Caller returns the authenticated key ID set by HMACAuth, or "".
func Caller(ctx context.Context) string {
	id, _ := ctx.Value(callerKey).(string)
	return id
}

// WithCaller returns a context carrying an authenticated caller.
func WithCaller(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, callerKey, keyID)
}

// RequestLogging assigns a request ID and logs request start and completion.
func (m *Middleware) RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Request started")

		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}

// SizeLimit caps request bodies at MaxRequestSize.
func (m *Middleware) SizeLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// HMACAuth verifies the request signature, rejects replayed nonces and
// stores the key ID as the caller for downstream handlers.
func (m *Middleware) HMACAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := RequestID(r.Context())
		reqLogger := logger.WithRequestID(requestID)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			WriteError(w, http.StatusUnauthorized, "MISSING_AUTH", "Authorization header required", requestID)
			return
		}

		authInfo, err := auth.ParseAuthHeader(authHeader)
		if err != nil {
			reqLogger.Warn().Err(err).Msg("Failed to parse auth header")
			WriteError(w, http.StatusUnauthorized, "INVALID_AUTH", "Invalid authorization header", requestID)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large", requestID)
				return
			}
			reqLogger.Error().Err(err).Msg("Failed to read request body")
			WriteError(w, http.StatusBadRequest, "READ_ERROR", "Failed to read request body", requestID)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := m.hmacAuth.VerifySignature(r.Method, r.URL.EscapedPath(), r.URL.RawQuery, body, authInfo); err != nil {
			logger.ForCaller(reqLogger, authInfo.KeyID).Warn().Err(err).Msg("Signature verification failed")
			WriteError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Signature verification failed", requestID)
			return
		}

		seen, err := m.nonces.HasSeenNonce(authInfo.Nonce)
		if err != nil {
			reqLogger.Error().Err(err).Msg("Failed to check nonce")
			WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to check nonce", requestID)
			return
		}
		if seen {
			reqLogger.Warn().Str("nonce", authInfo.Nonce).Msg("Nonce replay detected")
			WriteError(w, http.StatusUnauthorized, "REPLAY_ATTACK", "Nonce already seen", requestID)
			return
		}

		if err := m.nonces.SaveNonce(authInfo.Nonce); err != nil {
			// not fatal, the request is authentic
			reqLogger.Error().Err(err).Msg("Failed to save nonce")
		}

		logger.ForCaller(reqLogger, authInfo.KeyID).Debug().Msg("Authentication successful")
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), authInfo.KeyID)))
	})
}

// CORS adds Cross-Origin Resource Sharing headers and answers preflights.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// WriteError sends a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, code, message, requestID string) {
	WriteErrorDetails(w, statusCode, models.ErrorDetails{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	})
}

// WriteErrorDetails sends a JSON error response with full details. A
// positive RetryAfter is mirrored in the Retry-After header.
func WriteErrorDetails(w http.ResponseWriter, statusCode int, details models.ErrorDetails) {
	if details.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(details.RetryAfter))
	}
	WriteJSON(w, statusCode, models.ErrorResponse{Error: details})
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and delegates to the wrapped writer.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HealthCheck reports that the process is up.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessCheck reports 503 while the store cannot be reached.
func ReadinessCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("Database readiness check failed")
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database connection failed"})
			return
		}

		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
