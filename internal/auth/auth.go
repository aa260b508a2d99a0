package auth

import "fmt"

// Role is the closed set of account roles. Anything else is rejected at the
// boundary instead of being stored.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("role must be %q or %q", RoleUser, RoleAdmin)
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
