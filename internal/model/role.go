package model

import "fmt"

// Role is the closed set of actor roles. Transition permissions and scope
// checks switch exhaustively on this type instead of comparing raw strings.
type Role string

const (
	RoleStation   Role = "STATION"
	RoleZone      Role = "ZONE"
	RoleDirection Role = "DIRECTION"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole validates a raw role string coming from a token claim.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStation, RoleZone, RoleDirection, RoleAdmin:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

func (r Role) String() string { return string(r) }

// IsAdmin reports whether the role bypasses station/zone scoping.
func (r Role) IsAdmin() bool { return r == RoleAdmin }
