// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package security provides security strategies which decide whether a
// client may access an API.
package security

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"

	"github.com/z5labs/restkit"
)

// Token is the authenticated identity of a client.
type Token interface {
	Roles() []string
}

// RoleToken is a [Token] holding a fixed set of roles.
type RoleToken []string

// Roles implements the [Token] interface.
func (t RoleToken) Roles() []string {
	return t
}

// TokenStorage finds the [Token] of the client making a request.
// A nil token and nil error means the request is anonymous.
type TokenStorage interface {
	Token(*http.Request) (Token, error)
}

type tokenCtxKey struct{}

// WithToken returns a copy of ctx which carries tok.
func WithToken(ctx context.Context, tok Token) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, tok)
}

// ContextTokenStorage reads the [Token] placed in the request
// context by [WithToken].
type ContextTokenStorage struct{}

// Token implements the [TokenStorage] interface.
func (ContextTokenStorage) Token(r *http.Request) (Token, error) {
	tok, _ := r.Context().Value(tokenCtxKey{}).(Token)
	return tok, nil
}

// RoleHierarchy maps a role to the roles it implies.
type RoleHierarchy map[string][]string

// ReachableRoles returns the given roles plus every role they imply,
// transitively and without duplicates.
func (h RoleHierarchy) ReachableRoles(roles []string) []string {
	reachable := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	queue := slices.Clone(roles)
	for len(queue) > 0 {
		role := queue[0]
		queue = queue[1:]
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		reachable = append(reachable, role)
		queue = append(queue, h[role]...)
	}
	return reachable
}

// RoleAndIPOptions are configurable parameters of a [RoleAndIP] strategy.
type RoleAndIPOptions struct {
	hierarchy RoleHierarchy
	roles     []string
	ips       []string
	log       *slog.Logger
}

// RoleAndIPOption sets a value on [RoleAndIPOptions].
type RoleAndIPOption interface {
	ApplyRoleAndIPOption(*RoleAndIPOptions)
}

type roleAndIPOptionFunc func(*RoleAndIPOptions)

func (f roleAndIPOptionFunc) ApplyRoleAndIPOption(ro *RoleAndIPOptions) {
	f(ro)
}

// Hierarchy configures the role hierarchy used to expand token roles.
func Hierarchy(h RoleHierarchy) RoleAndIPOption {
	return roleAndIPOptionFunc(func(ro *RoleAndIPOptions) {
		ro.hierarchy = h
	})
}

// RequireRoles configures roles which must all be reachable from the token.
func RequireRoles(roles ...string) RoleAndIPOption {
	return roleAndIPOptionFunc(func(ro *RoleAndIPOptions) {
		ro.roles = append(ro.roles, roles...)
	})
}

// AllowIPs restricts access to the given addresses or CIDR ranges.
func AllowIPs(ips ...string) RoleAndIPOption {
	return roleAndIPOptionFunc(func(ro *RoleAndIPOptions) {
		ro.ips = append(ro.ips, ips...)
	})
}

// Logger configures the logger used to report denials.
func Logger(log *slog.Logger) RoleAndIPOption {
	return roleAndIPOptionFunc(func(ro *RoleAndIPOptions) {
		ro.log = log
	})
}

// RoleAndIP allows a request when the client token reaches every required
// role and, if an allow list is configured, the client IP is on it.
type RoleAndIP struct {
	storage   TokenStorage
	hierarchy RoleHierarchy
	roles     []string
	prefixes  []netip.Prefix
	log       *slog.Logger
}

// NewRoleAndIP initializes a [RoleAndIP] strategy. An error is returned
// when an allowed IP is neither an address nor a CIDR range.
func NewRoleAndIP(storage TokenStorage, opts ...RoleAndIPOption) (*RoleAndIP, error) {
	ro := &RoleAndIPOptions{
		log: restkit.Logger("github.com/z5labs/restkit/security"),
	}
	for _, opt := range opts {
		opt.ApplyRoleAndIPOption(ro)
	}

	prefixes := make([]netip.Prefix, 0, len(ro.ips))
	for _, ip := range ro.ips {
		p, err := parsePrefix(ip)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p)
	}

	s := &RoleAndIP{
		storage:   storage,
		hierarchy: ro.hierarchy,
		roles:     ro.roles,
		prefixes:  prefixes,
		log:       ro.log,
	}
	return s, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// IsAllowed implements the security strategy contract.
func (s *RoleAndIP) IsAllowed(r *http.Request) bool {
	ctx := r.Context()

	tok, err := s.storage.Token(r)
	if err != nil {
		s.log.DebugContext(ctx, "failed to load token", slog.Any("error", err))
		return false
	}
	if tok == nil {
		s.log.DebugContext(ctx, "token not found")
		return false
	}

	available := s.hierarchy.ReachableRoles(tok.Roles())
	for _, role := range s.roles {
		if !slices.Contains(available, role) {
			return false
		}
	}

	if len(s.prefixes) == 0 {
		return true
	}
	return s.clientIPAllowed(r)
}

func (s *RoleAndIP) clientIPAllowed(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, p := range s.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
