package domain

// Global user roles, assigned by the identity provider.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleIntern   = "intern"
)

// User models an actor resolved from the identity provider. The messaging
// core reads it and never mutates it.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// ValidRole reports whether role is one of the three known user classes.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEmployee, RoleIntern:
		return true
	}
	return false
}

// IsStaff reports whether the role may approve chat requests.
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleEmployee
}
