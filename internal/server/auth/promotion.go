package auth

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

// PromotionPolicy decides, once at registration, which role a new actor
// gets for the code it supplied.
type PromotionPolicy interface {
	RoleFor(code string) models.Role
}

// SecretCodePolicy grants admin to callers presenting the configured code.
// An empty configured code never promotes.
type SecretCodePolicy struct {
	code []byte
}

func NewSecretCodePolicy(code string) *SecretCodePolicy {
	return &SecretCodePolicy{code: []byte(code)}
}

func (p *SecretCodePolicy) RoleFor(code string) models.Role {
	if len(p.code) == 0 || code == "" {
		return models.RoleAttendant
	}
	if subtle.ConstantTimeCompare(p.code, []byte(code)) == 1 {
		return models.RoleAdmin
	}
	return models.RoleAttendant
}
