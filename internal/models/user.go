package models

import "time"

// Role controls what a user may do: citizens submit reports, analysts verify
// them, admins additionally export data and delete any report.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleAnalyst, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the minimal user shape exposed to other clients, e.g. in the
// realtime authenticated acknowledgement. Never carries password data.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Profile returns the public projection of the user.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
