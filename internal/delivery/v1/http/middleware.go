package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TokenVerifier проверяет bearer-токен и возвращает пользователя запроса.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type identityKey struct{}

func withIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromCtx возвращает пользователя, установленного Authenticate.
func IdentityFromCtx(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// Authenticate требует заголовок Authorization: Bearer <JWT>.
func Authenticate(verifier TokenVerifier, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				respondError(log, w, r, e.Wrap("missing bearer token", e.ErrUnauthorized))
				return
			}

			identity, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				respondError(log, w, r, err)
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int64("user.id", identity.UserID))
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin пропускает только пользователей с правом изменять каталог.
func RequireAdmin(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromCtx(r.Context())
			if !ok {
				respondError(log, w, r, e.ErrUnauthorized)
				return
			}
			if !identity.CanManageCatalog() {
				respondError(log, w, r, e.Wrap(string(identity.Role), e.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// routeAttribute дописывает в span шаблон маршрута chi, который известен только после роутинга.
func routeAttribute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				span := trace.SpanFromContext(r.Context())
				span.SetAttributes(attribute.String("http.route", pattern))
				span.SetName(r.Method + " " + pattern)
			}
		}
	})
}
