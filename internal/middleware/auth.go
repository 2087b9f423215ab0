package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/asktracker/asktracker-go/internal/crypto"
	"github.com/asktracker/asktracker-go/internal/metrics"
)

var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidScheme        = errors.New("invalid authentication scheme")
)

const bearerScheme = "Bearer"

type contextKey string

const claimsKey contextKey = "claims"

// AuthGate admits requests carrying a valid bearer token and rejects all
// others with 403. It never mutates state beyond the request context.
type AuthGate struct {
	codec   *crypto.TokenCodec
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAuthGate creates an AuthGate. m may be nil.
func NewAuthGate(codec *crypto.TokenCodec, logger *slog.Logger, m *metrics.Metrics) *AuthGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthGate{codec: codec, logger: logger, metrics: m}
}

// Check extracts and verifies the bearer token of r. The error is one of
// ErrMissingAuthorization, ErrInvalidScheme, crypto.ErrMalformedToken or
// crypto.ErrExpiredToken.
func (g *AuthGate) Check(r *http.Request) (*crypto.Claims, error) {
	// Scheme and credentials are separated by any run of whitespace.
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) < 2 {
		return nil, ErrMissingAuthorization
	}
	if fields[0] != bearerScheme {
		return nil, ErrInvalidScheme
	}
	if len(fields) > 2 {
		return nil, crypto.ErrMalformedToken
	}

	return g.codec.Verify(fields[1])
}

// Handler is the middleware form of Check.
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Check(r)
		if err != nil {
			reason := rejectionReason(err)
			g.metrics.ObserveGateRejection(reason)
			g.logger.InfoContext(r.Context(), "request rejected by auth gate",
				"reason", reason,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
			)
			writeJSONError(w, http.StatusForbidden, rejectionMessage(err))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the claims stored by AuthGate.
func ClaimsFromContext(ctx context.Context) (*crypto.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*crypto.Claims)
	return claims, ok
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingAuthorization):
		return "missing_authorization"
	case errors.Is(err, ErrInvalidScheme):
		return "invalid_scheme"
	case errors.Is(err, crypto.ErrExpiredToken):
		return "expired_token"
	default:
		return "malformed_token"
	}
}

// rejectionMessage collapses malformed and expired tokens into one message.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingAuthorization):
		return "Invalid authorization code."
	case errors.Is(err, ErrInvalidScheme):
		return "Invalid Authentication Schema"
	default:
		return "Invalid Token or Expired Token"
	}
}
