// AngelaMos | 2026
// claims.go

package auth

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// Purpose is the closed set of token families. The wire value travels in
// the "type" claim.
type Purpose int

const (
	PurposeSession Purpose = iota + 1
	PurposeConfiguratorEdit
	PurposeAPIAccess
)

func (p Purpose) String() string {
	switch p {
	case PurposeSession:
		return "session"
	case PurposeConfiguratorEdit:
		return "configurator_edit"
	case PurposeAPIAccess:
		return "api_access"
	default:
		return "unknown"
	}
}

// ParsePurpose maps a "type" claim to a Purpose. Tokens minted before the
// claim existed carry none and are session tokens.
func ParsePurpose(s string) (Purpose, error) {
	switch s {
	case "", "session":
		return PurposeSession, nil
	case "configurator_edit":
		return PurposeConfiguratorEdit, nil
	case "api_access":
		return PurposeAPIAccess, nil
	default:
		return 0, fmt.Errorf("unknown token type %q: %w", s, core.ErrTokenInvalid)
	}
}

// Claims is implemented only by the three token families in this package.
type Claims interface {
	Purpose() Purpose
	Registered() RegisteredClaims
	sealed()
}

type RegisteredClaims struct {
	TenantID  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type SessionClaims struct {
	RegisteredClaims
}

type EditClaims struct {
	RegisteredClaims
	ConfiguratorID string
}

type APIClaims struct {
	RegisteredClaims
	PublicKey string
	Email     string
}

func (c SessionClaims) Purpose() Purpose { return PurposeSession }
func (c EditClaims) Purpose() Purpose    { return PurposeConfiguratorEdit }
func (c APIClaims) Purpose() Purpose     { return PurposeAPIAccess }

func (c SessionClaims) Registered() RegisteredClaims { return c.RegisteredClaims }
func (c EditClaims) Registered() RegisteredClaims    { return c.RegisteredClaims }
func (c APIClaims) Registered() RegisteredClaims     { return c.RegisteredClaims }

func (SessionClaims) sealed() {}
func (EditClaims) sealed()    {}
func (APIClaims) sealed()     {}
