// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"

	"github.com/z5labs/restkit/example/rest/users/endpoint"
	"github.com/z5labs/restkit/health"
	"github.com/z5labs/restkit/resolve/pgxrepo"
	"github.com/z5labs/restkit/rest"
	"github.com/z5labs/restkit/security"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	rest.Config `config:",squash"`

	Postgres struct {
		DSN string `config:"dsn"`
	} `config:"postgres"`

	JWT struct {
		Secret string `config:"secret"`
	} `config:"jwt"`
}

func Init(ctx context.Context, cfg Config) (*rest.Router, error) {
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}

	strategy, err := security.NewRoleAndIP(
		security.NewJWTTokenStorage([]byte(cfg.JWT.Secret)),
		security.RequireRoles("ROLE_USER"),
		security.Hierarchy(security.RoleHierarchy{
			"ROLE_ADMIN": {"ROLE_USER"},
		}),
	)
	if err != nil {
		return nil, err
	}

	users := pgxrepo.NewTable(pool, "users", pgxrepo.Columns("id", "first_name", "email"))
	api := endpoint.NewApi(users, strategy)

	opts, err := cfg.ManagerOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, rest.RegisterApi(api, rest.Key(endpoint.ApiKey), rest.UriPattern("^/users")))

	m, err := rest.NewManager(opts...)
	if err != nil {
		return nil, err
	}

	router := rest.NewRouter(
		rest.NewListener(m, cfg.ListenerOptions()...),
		rest.Readiness(health.Ping(pool)),
	)
	endpoint.Register(router, endpoint.NewStore(pool))
	return router, nil
}
