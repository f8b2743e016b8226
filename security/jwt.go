// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package security

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/z5labs/restkit/apierror"

	"github.com/golang-jwt/jwt/v5"
)

type roleClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTTokenStorage reads HS256 signed bearer tokens from the
// Authorization header. Roles are taken from the "roles" claim.
type JWTTokenStorage struct {
	key []byte
}

// NewJWTTokenStorage returns a [JWTTokenStorage] verifying tokens with key.
func NewJWTTokenStorage(key []byte) *JWTTokenStorage {
	return &JWTTokenStorage{key: key}
}

// Token implements the [TokenStorage] interface.
func (s *JWTTokenStorage) Token(r *http.Request) (Token, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, apierror.AuthenticationError{Message: "unsupported authorization scheme"}
	}

	claims := &roleClaims{}
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, apierror.AuthenticationError{Message: err.Error()}
	}
	return RoleToken(claims.Roles), nil
}
