package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/correlation"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

const (
	HeaderSessionID = "X-Session-Id"
	HeaderUserID    = "X-User-Id"
)

func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if cid := strings.TrimSpace(r.Header.Get(correlation.Header)); cid != "" {
			ctx = correlation.WithID(ctx, cid)
		}
		ctx, cid := correlation.Ensure(ctx)

		w.Header().Set(correlation.Header, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger attaches logger to the request context and writes one access
// line per request.
func requestLogger(logger zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				l := hlog.FromRequest(r).With().Str("correlation_id", correlation.ID(r.Context())).Logger()
				next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
			})
		},
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("latency", duration).
				Msg("request")
		}),
	}
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hlog.FromRequest(r).Error().Interface("panic", rec).Msg("handler panicked")
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error:         "internal server error",
					CorrelationID: correlation.ID(r.Context()),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsHandler(allowOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", correlation.Header, HeaderSessionID, HeaderUserID},
		ExposedHeaders:   []string{correlation.Header, HeaderSessionID},
		AllowCredentials: !(len(allowOrigins) == 1 && allowOrigins[0] == "*"),
	}).Handler
}

// instrument records request count and latency labelled by route pattern, so
// path parameters do not explode label cardinality.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		})
	}
}

// withIdentity resolves who is calling. The session id comes from
// X-Session-Id and is minted when absent. A bearer token is verified when a
// secret is configured; otherwise X-User-Id set by the gateway is trusted.
func withIdentity(verifier *identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := identity.Session{ID: strings.TrimSpace(r.Header.Get(HeaderSessionID))}
			if sess.ID == "" {
				sess.ID = session.NewID()
			}
			if !session.ValidID(sess.ID) {
				writeError(w, r, session.ErrInvalidID)
				return
			}
			w.Header().Set(HeaderSessionID, sess.ID)

			if token, ok := identity.BearerToken(r.Header.Get("Authorization")); ok && verifier != nil && verifier.Enabled() {
				userID, err := verifier.Verify(token)
				if err != nil {
					writeError(w, r, err)
					return
				}
				sess.UserID = userID
				sess.AccessToken = token
			} else if verifier == nil || !verifier.Enabled() {
				sess.UserID = strings.TrimSpace(r.Header.Get(HeaderUserID))
			}

			next.ServeHTTP(w, r.WithContext(identity.WithSession(r.Context(), sess)))
		})
	}
}
