package identity

import "time"

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultName is used when a user verifies without supplying a name.
const DefaultName = "User"

// User represents a storefront account keyed by its normalized phone.
type User struct {
	ID        string
	Phone     string
	Name      string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user may access admin-only operations.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
