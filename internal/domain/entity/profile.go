package entity

// Profile is the reconciled view of a person: directory fields plus admin status.
type Profile struct {
	User
	IsAdmin   bool    `json:"isAdmin"`
	AdminRole *string `json:"adminRole"`
}

// NewProfile composes a directory row with an optional admin grant.
func NewProfile(user *User, grant *AdminGrant) *Profile {
	p := &Profile{User: *user}
	if grant != nil {
		role := grant.Role
		p.IsAdmin = true
		p.AdminRole = &role
	}
	return p
}
