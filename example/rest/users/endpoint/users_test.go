// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/z5labs/restkit/rest"
	"github.com/z5labs/restkit/security"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

func (f execFunc) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return f(ctx, sql, args...)
}

type repositoryFunc func(ctx context.Context, criteria map[string]any) (any, error)

func (f repositoryFunc) FindOneBy(ctx context.Context, criteria map[string]any) (any, error) {
	return f(ctx, criteria)
}

var secret = []byte("test-secret")

func signedToken(t *testing.T, roles ...string) string {
	t.Helper()

	claims := struct {
		Roles []string `json:"roles"`
		jwt.RegisteredClaims
	}{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func newRouter(t *testing.T, users repositoryFunc, exec execFunc) *rest.Router {
	t.Helper()

	strategy, err := security.NewRoleAndIP(
		security.NewJWTTokenStorage(secret),
		security.RequireRoles("ROLE_USER"),
		security.Hierarchy(security.RoleHierarchy{"ROLE_ADMIN": {"ROLE_USER"}}),
	)
	require.NoError(t, err)

	m, err := rest.NewManager(rest.RegisterApi(NewApi(users, strategy), rest.Key(ApiKey), rest.UriPattern("^/users")))
	require.NoError(t, err)

	router := rest.NewRouter(rest.NewListener(m))
	Register(router, NewStore(exec))
	return router
}

func TestCreateUser(t *testing.T) {
	t.Run("will insert a valid user", func(t *testing.T) {
		var inserted []any
		router := newRouter(t, nil, func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			inserted = args
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		})

		r := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"firstName":"Ada","email":"ada@example.com"}`))
		r.Header.Set("Authorization", "Bearer "+signedToken(t, "ROLE_ADMIN"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, inserted, 3)
		require.Equal(t, "/users/"+inserted[0].(string), w.Header().Get("Location"))
	})

	t.Run("will reject an invalid email", func(t *testing.T) {
		router := newRouter(t, nil, nil)

		r := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"firstName":"Ada","email":"nope"}`))
		r.Header.Set("Authorization", "Bearer "+signedToken(t, "ROLE_USER"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, "invalid_parameters", body["error"])
		require.Contains(t, body["error_properties"], "email")
	})

	t.Run("will deny requests without a token", func(t *testing.T) {
		router := newRouter(t, nil, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{}`)))

		require.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetUser(t *testing.T) {
	users := repositoryFunc(func(ctx context.Context, criteria map[string]any) (any, error) {
		if criteria["id"] != "1" {
			return nil, nil
		}
		return map[string]any{"id": "1", "first_name": "Ada", "email": "ada@example.com"}, nil
	})

	t.Run("will return the resolved user", func(t *testing.T) {
		router := newRouter(t, users, nil)

		r := httptest.NewRequest(http.MethodGet, "/users/1", nil)
		r.Header.Set("Authorization", "Bearer "+signedToken(t, "ROLE_USER"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "max-age=60, public", w.Header().Get("Cache-Control"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, map[string]any{"id": "1", "firstName": "Ada", "email": "ada@example.com"}, body)
	})

	t.Run("will reply not_found for unknown users", func(t *testing.T) {
		router := newRouter(t, users, nil)

		r := httptest.NewRequest(http.MethodGet, "/users/2", nil)
		r.Header.Set("Authorization", "Bearer "+signedToken(t, "ROLE_USER"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
