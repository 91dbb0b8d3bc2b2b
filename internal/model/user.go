package model

import "time"

// Role is the authorization role stored on a user and carried in the JWT
// "role" claim.
type Role string

const (
	RoleSuperuser        Role = "SUPERUSER"
	RoleAdminResource    Role = "ADMIN_RESOURCE"
	RoleAdminReservation Role = "ADMIN_RESERVATION"
	RoleUser             Role = "USER"
)

// AdminRoles lists every role that receives new-request notifications and
// may open the admin reservation queue.
var AdminRoles = []Role{RoleSuperuser, RoleAdminReservation, RoleAdminResource}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperuser, RoleAdminResource, RoleAdminReservation, RoleUser:
		return true
	}
	return false
}

// IsAdmin reports whether r is any administrative role.
func (r Role) IsAdmin() bool {
	return r == RoleSuperuser || r == RoleAdminResource || r == RoleAdminReservation
}

// User represents an application user record as stored in the `users`
// table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	FirstName    – given name.
//	LastName     – family name; its first word feeds reservation display IDs.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – one of SUPERUSER, ADMIN_RESOURCE, ADMIN_RESERVATION, USER.
//	IsActive     – whether the account may log in.
type User struct {
	ID           uint64    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name, trimming blanks.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserSummary is the slice of a user embedded in reservation listings.
type UserSummary struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
