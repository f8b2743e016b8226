// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rest dispatches HTTP requests to controllers governed by
// registered [Api] configurations and shapes their responses.
//
// A request is governed by an [Api] when its route carries an explicit
// api key attribute or when its path matches a registered URI pattern.
// For governed requests the [Listener] runs, in order:
//
//  1. locale resolution
//  2. the security check
//  3. query mapping and validation
//  4. body decoding, mapping and validation
//  5. attribute resolution
//  6. response shaping (cache headers, conditional requests, encoding)
//  7. error mapping for anything which failed above
//
// Requests which are not governed pass through untouched.
//
// # Usage
//
//	api := rest.NewApi(
//	    rest.RequestMapper("create_user", mapper.NewStructMapper[User]("user")),
//	    rest.ValidationGroups("create_user", validation.DefaultGroup),
//	    rest.ResponseMapper("create_user", mapper.NewStructMapper[User]("user")),
//	)
//
//	m, err := rest.NewManager(rest.RegisterApi(api, rest.Key("users")))
//	if err != nil {
//	    return err
//	}
//
//	router := rest.NewRouter(rest.NewListener(m))
//	router.Route(http.MethodPost, "/users", "create_user", createUser, rest.WithApiKey("users"))
package rest
