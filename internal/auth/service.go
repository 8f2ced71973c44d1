package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Service enforces API-key access control. Keys are configured as token:role
// pairs and stored as sha256 digests; casbin maps roles to permissions.
type Service struct {
	enforcer     *casbin.Enforcer
	roleByDigest map[string]string
}

// NewService builds the enforcer with static role policies from the given
// token→role map. An empty map disables enforcement.
func NewService(keys map[string]string) (*Service, error) {
	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	// Admin can do everything
	e.AddPolicy("admin", "*", "*")
	// Writer can read, mutate the selection and trigger refreshes
	e.AddPolicy("writer", "prices", "read")
	e.AddPolicy("writer", "prices", "refresh")
	e.AddPolicy("writer", "selection", "read")
	e.AddPolicy("writer", "selection", "write")
	// Viewer can only read
	e.AddPolicy("viewer", "prices", "read")
	e.AddPolicy("viewer", "selection", "read")

	roleByDigest := make(map[string]string, len(keys))
	for token, role := range keys {
		roleByDigest[hashToken(token)] = role
	}

	return &Service{enforcer: e, roleByDigest: roleByDigest}, nil
}

// Enabled reports whether any API keys are configured.
func (s *Service) Enabled() bool {
	return len(s.roleByDigest) > 0
}

// ValidateToken resolves a raw bearer token to its role.
func (s *Service) ValidateToken(rawToken string) (string, error) {
	role, ok := s.roleByDigest[hashToken(rawToken)]
	if !ok {
		return "", errors.New("unknown token")
	}
	return role, nil
}

// Enforce checks whether a role may perform act on obj.
func (s *Service) Enforce(role, obj, act string) (bool, error) {
	return s.enforcer.Enforce(role, obj, act)
}

func hashToken(rawToken string) string {
	hasher := sha256.New()
	hasher.Write([]byte(rawToken))
	return hex.EncodeToString(hasher.Sum(nil))
}
