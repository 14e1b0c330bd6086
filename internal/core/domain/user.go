package domain

import "strings"

// UserType is the marketplace role a user signed up with.
type UserType string

const (
	UserTypeBuyer  UserType = "buyer"
	UserTypeSeller UserType = "seller"
	UserTypeBoth   UserType = "both"
)

func (t UserType) Valid() bool {
	return t == UserTypeBuyer || t == UserTypeSeller || t == UserTypeBoth
}

// User models a marketplace participant. PasswordHash never leaves the server.
type User struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	PasswordHash      string   `json:"-"`
	Name              string   `json:"name"`
	Phone             string   `json:"phone,omitempty"`
	UserType          UserType `json:"userType"`
	Rating            float64  `json:"rating"`
	TotalTransactions int      `json:"totalTransactions"`
	JoinedDate        Date     `json:"joinedDate"`
}

// UserPatch lists the profile fields a user may overwrite. Nil fields are
// left untouched.
type UserPatch struct {
	Email    *string
	Name     *string
	Phone    *string
	UserType *UserType
}

// Apply overwrites the non-nil fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.UserType != nil {
		u.UserType = *p.UserType
	}
}

// NormalizeEmail lower-cases and trims an address so that lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
