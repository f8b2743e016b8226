// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/restkit/apierror"
	"github.com/z5labs/restkit/cache"
	"github.com/z5labs/restkit/mapper"
	"github.com/z5labs/restkit/resolve"
	"github.com/z5labs/restkit/rest"
	"github.com/z5labs/restkit/validation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ApiKey is the key the users api is registered under.
const ApiKey = "users"

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email"`
}

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists users.
type Store struct {
	db Execer
}

func NewStore(db Execer) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, u *User) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO users (id, first_name, email) VALUES ($1, $2, $3)`,
		u.ID,
		u.FirstName,
		u.Email,
	)
	return err
}

// row normalizes rows returned by [pgxrepo.Table].
var row = mapper.NormalizerFunc(func(entity any) (any, error) {
	m, _ := entity.(map[string]any)
	return map[string]any{
		"id":        m["id"],
		"firstName": m["first_name"],
		"email":     m["email"],
	}, nil
})

func NewApi(users resolve.Repository, security rest.SecurityStrategy) *rest.Api {
	userMapper := mapper.NewStructMapper[User]("user")

	return rest.NewApi(
		rest.Security(security),
		rest.ResponseFormats("json", "yaml", "toml"),
		rest.DefaultLogRequest(rest.LoggingParts{URL: true}),

		rest.RequestMapper("create_user", userMapper),
		rest.ValidationGroups("create_user", validation.DefaultGroup),
		rest.ResponseMapper("create_user", userMapper),
		rest.LogRequest("create_user", rest.LoggingParts{URL: true, Headers: true, Body: true}),

		rest.ResponseMapper("get_user", row),
		rest.CacheStrategy("get_user", cache.Public{Strategy: cache.Fixed(60)}),
		rest.AttributeResolvers("get_user", resolve.Parameter{
			Name:      "id",
			Attribute: "user",
			In:        resolve.InPath,
			Resolver:  resolve.RepositoryResolver{Repository: users, Field: "id"},
		}),
	)
}

// Register adds the user routes to router.
func Register(router *rest.Router, store *Store) {
	router.Route(http.MethodPost, "/users", "create_user", createUser(store), rest.WithApiKey(ApiKey))
	router.Route(http.MethodGet, "/users/{id}", "get_user", rest.ControllerFunc(getUser), rest.WithApiKey(ApiKey))
}

func createUser(store *Store) rest.ControllerFunc {
	return func(ctx context.Context, r *http.Request) (any, error) {
		u, _ := rest.Attribute[*User](ctx, "user")
		u.ID = uuid.NewString()

		err := store.Insert(ctx, u)
		if err != nil {
			return nil, err
		}
		return rest.Response{
			Payload: u,
			Headers: http.Header{"Location": {"/users/" + u.ID}},
		}, nil
	}
}

func getUser(ctx context.Context, r *http.Request) (any, error) {
	u, ok := rest.Attribute[map[string]any](ctx, "user")
	if !ok {
		return nil, apierror.New(apierror.NotFound, "")
	}
	return u, nil
}
