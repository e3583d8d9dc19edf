package domain

import "strings"

// Role is the caller's subscription tier.
type Role string

// Known roles.
const (
	RoleFree    Role = "free"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

// Unlimited marks a limit that is never enforced.
const Unlimited = -1

// ParseRole normalizes a role header value. Unknown or empty values map to RoleFree.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "premium":
		return RolePremium
	default: // "free", "gratuit", anything else
		return RoleFree
	}
}

// RoleLimit is the static allowance of one role.
type RoleLimit struct {
	DailyMessages int `yaml:"daily_messages"`
	MonthlyTokens int `yaml:"monthly_tokens"`
}

// RoleLimits maps each role to its allowance.
type RoleLimits map[Role]RoleLimit

// For returns the limit of r, falling back to the free tier.
func (l RoleLimits) For(r Role) RoleLimit {
	if lim, ok := l[r]; ok {
		return lim
	}
	return l[RoleFree]
}

// DefaultRoleLimits returns the stock allowances.
func DefaultRoleLimits() RoleLimits {
	return RoleLimits{
		RoleFree:    {DailyMessages: 10, MonthlyTokens: 1_000_000},
		RolePremium: {DailyMessages: 30, MonthlyTokens: 4_000_000},
		RoleAdmin:   {DailyMessages: Unlimited, MonthlyTokens: Unlimited},
	}
}
