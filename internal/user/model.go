package user

import "time"

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Address struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	Label      string `json:"label"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}

// Profile is the user's own view: account fields plus the default address,
// if one exists.
type Profile struct {
	User    User     `json:"user"`
	Address *Address `json:"address,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Address fields update or
// create the default address.
type ProfileUpdate struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Line1      string
	City       string
	PostalCode string
	Country    string
}
