package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleVendor   Role = "vendor"
	RoleSupplier Role = "supplier"
)

func (r Role) Valid() bool { return r == RoleVendor || r == RoleSupplier }

// Actor is the identity the upstream provider vouches for. The order core
// never verifies credentials itself; it only reads the claims.
type Actor struct {
	ID   string
	Role Role
}

var ErrNoActor = errors.New("missing or malformed actor identity")

// FromRequest extracts the actor from a bearer token if present, otherwise
// from the X-Actor-* headers used by internal service-to-service calls.
// Token signatures are the identity provider's problem; we decode claims only.
func FromRequest(r *http.Request) (Actor, error) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return fromToken(strings.TrimPrefix(h, "Bearer "))
	}
	a := Actor{
		ID:   r.Header.Get("X-Actor-Id"),
		Role: Role(r.Header.Get("X-Actor-Role")),
	}
	if a.ID == "" || !a.Role.Valid() {
		return Actor{}, ErrNoActor
	}
	return a, nil
}

func fromToken(raw string) (Actor, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Actor{}, ErrNoActor
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	a := Actor{ID: sub, Role: Role(role)}
	if a.ID == "" || !a.Role.Valid() {
		return Actor{}, ErrNoActor
	}
	return a, nil
}
