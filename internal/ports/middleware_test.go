package ports

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/identity"
	"github.com/moffittboard/moffittboard/internal/ratelimiting"
	"github.com/stretchr/testify/require"
)

type mockedRateLimiter struct {
	t           *testing.T
	allow       bool
	expectedKey string
}

func (m *mockedRateLimiter) Consume(key string) bool {
	m.t.Helper()
	require.Equal(m.t, m.expectedKey, key)
	return m.allow
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	runTest := func(t *testing.T, allow bool) {
		t.Helper()
		handlerCalled := false
		onLimitExceededCalled := false
		rateLimiter := &mockedRateLimiter{
			t:           t,
			allow:       allow,
			expectedKey: "ip: 12.12.123.123",
		}
		ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
			rateLimiter, ratelimiting.IPKeyFunc,
		)

		w := httptest.NewRecorder()
		middleware := NewRateLimitMiddleware(
			ipRateLimiter,
			func(w http.ResponseWriter, r *http.Request) {
				onLimitExceededCalled = true
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			},
		)
		handler := middleware(
			func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			},
		)

		req, err := http.NewRequest("GET", "http://example.com/test", nil)
		require.NoError(t, err)
		req.RemoteAddr = "169.254.169.126:58418"
		req.Header.Set("X-Forwarded-For", "12.12.123.123,34.111.7.239")

		handler(w, req)

		if allow {
			require.True(t, handlerCalled, "Expected handler to be called")
			require.False(t, onLimitExceededCalled)
			require.Equal(t, http.StatusOK, w.Code)
		} else {
			require.True(t, onLimitExceededCalled)
			require.False(t, handlerCalled, "Expected handler to not be called")
			require.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()

		runTest(t, true)
	})

	t.Run("not allowed", func(t *testing.T) {
		t.Parallel()

		runTest(t, false)
	})
}

func TestComposeMiddlewares(t *testing.T) {
	t.Parallel()

	t.Run("single middleware", func(t *testing.T) {
		t.Parallel()

		handlerCalled := false
		middlewareStage := "not called"
		middleware := ComposeMiddlewares(
			func(next http.HandlerFunc) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					middlewareStage = "pre"
					next(w, r)
					middlewareStage = "post"
				}
			},
		)

		handler := middleware(
			func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				require.Equal(t, "pre", middlewareStage)
			},
		)

		w := httptest.NewRecorder()
		handler(w, &http.Request{})

		require.True(t, handlerCalled)
		require.Equal(t, "post", middlewareStage)
	})

	t.Run("multiple middleware", func(t *testing.T) {
		t.Parallel()

		handlerCalled := false

		stage1 := "not called"
		stage2 := "not called"
		stage3 := "not called"

		middleware1 := func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "not called", stage1)
				require.Equal(t, "not called", stage2)
				require.Equal(t, "not called", stage3)

				stage1 = "pre"
				next(w, r)
				stage1 = "post"

				require.Equal(t, "post", stage1)
				require.Equal(t, "post", stage2)
				require.Equal(t, "post", stage3)
			}
		}
		middleware2 := func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "pre", stage1)
				require.Equal(t, "not called", stage2)
				require.Equal(t, "not called", stage3)

				stage2 = "pre"
				next(w, r)
				stage2 = "post"

				require.Equal(t, "pre", stage1)
				require.Equal(t, "post", stage2)
				require.Equal(t, "post", stage3)
			}
		}
		middleware3 := func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "pre", stage1)
				require.Equal(t, "pre", stage2)
				require.Equal(t, "not called", stage3)

				stage3 = "pre"
				next(w, r)
				stage3 = "post"

				require.Equal(t, "pre", stage1)
				require.Equal(t, "pre", stage2)
				require.Equal(t, "post", stage3)
			}
		}

		middleware := ComposeMiddlewares(middleware1, middleware2, middleware3)

		handler := middleware(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "pre", stage1)
				require.Equal(t, "pre", stage2)
				require.Equal(t, "pre", stage3)
				handlerCalled = true
			},
		)

		w := httptest.NewRecorder()
		handler(w, &http.Request{})

		require.True(t, handlerCalled)

		require.Equal(t, "post", stage1)
		require.Equal(t, "post", stage2)
		require.Equal(t, "post", stage3)
	})
}

type mockedIdentityProvider struct {
	t             *testing.T
	expectedToken string
	id            identity.Identity
	err           error
}

func (m *mockedIdentityProvider) Verify(ctx context.Context, token string) (identity.Identity, error) {
	m.t.Helper()
	require.Equal(m.t, m.expectedToken, token)
	return m.id, m.err
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	alice := identity.Identity{Subject: "user-alice", Email: "alice@berkeley.edu"}

	cases := []struct {
		name          string
		authorization string
		provider      *mockedIdentityProvider
		authenticated bool
	}{
		{
			name:          "valid token",
			authorization: "Bearer token-123",
			provider:      &mockedIdentityProvider{expectedToken: "token-123", id: alice},
			authenticated: true,
		},
		{
			name:          "lowercase scheme",
			authorization: "bearer token-123",
			provider:      &mockedIdentityProvider{expectedToken: "token-123", id: alice},
			authenticated: true,
		},
		{
			name:          "rejected token",
			authorization: "Bearer token-123",
			provider: &mockedIdentityProvider{
				expectedToken: "token-123",
				err:           fmt.Errorf("%w: token expired", domain.ErrUnauthenticated),
			},
			authenticated: false,
		},
		{
			name:          "missing header",
			authorization: "",
			provider:      &mockedIdentityProvider{},
			authenticated: false,
		},
		{
			name:          "basic auth",
			authorization: "Basic dXNlcjpwYXNz",
			provider:      &mockedIdentityProvider{},
			authenticated: false,
		},
		{
			name:          "empty token",
			authorization: "Bearer   ",
			provider:      &mockedIdentityProvider{},
			authenticated: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			c.provider.t = t

			handlerCalled := false
			onUnauthenticatedCalled := false

			middleware := NewAuthMiddleware(c.provider, func(w http.ResponseWriter, r *http.Request) {
				onUnauthenticatedCalled = true
				w.WriteHeader(http.StatusUnauthorized)
			})
			handler := middleware(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true

				id, ok := identity.FromContext(r.Context())
				require.True(t, ok)
				require.Equal(t, alice, id)

				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "https://api.moffittboard.com/v1/me", nil)
			if c.authorization != "" {
				req.Header.Set("Authorization", c.authorization)
			}
			w := httptest.NewRecorder()

			handler(w, req)

			require.Equal(t, c.authenticated, handlerCalled)
			require.Equal(t, !c.authenticated, onUnauthenticatedCalled)
			if c.authenticated {
				require.Equal(t, http.StatusOK, w.Code)
			} else {
				require.Equal(t, http.StatusUnauthorized, w.Code)
			}
		})
	}
}
