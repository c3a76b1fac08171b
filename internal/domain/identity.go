package domain

import "encoding/json"

// Role is the closed set of KrishiSat user roles.
type Role string

const (
	RoleFarmer       Role = "farmer"
	RoleStaff        Role = "staff"
	RoleGovtOfficial Role = "govt_official"

	// RoleUnknown is the fallback for identities carrying a role outside the
	// closed set. An unknown role never matches a permitted set, so guarded
	// routes fall through to the default redirect instead of rendering.
	RoleUnknown Role = ""
)

// ParseRole maps a raw role string onto the closed set.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleFarmer, RoleStaff, RoleGovtOfficial:
		return Role(s)
	default:
		return RoleUnknown
	}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleStaff || r == RoleGovtOfficial
}

// DefaultPath returns the landing path for a role after login.
func (r Role) DefaultPath() string {
	switch r {
	case RoleFarmer:
		return "/dashboard"
	case RoleStaff:
		return "/staff-dashboard"
	case RoleGovtOfficial:
		return "/govt-dashboard"
	default:
		return "/"
	}
}

// Identity is the authenticated user profile held in the session box.
type Identity struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone"`
}

// UnmarshalJSON parses an identity, collapsing out-of-set roles to
// RoleUnknown rather than failing.
func (i *Identity) UnmarshalJSON(data []byte) error {
	type alias Identity
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Role = ParseRole(string(a.Role))
	*i = Identity(a)
	return nil
}
