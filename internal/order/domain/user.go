package domain

import "time"

// User is a marketplace account. Vendors buy, suppliers list materials.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	BusinessName string    `json:"businessName,omitempty"`
	Location     *GeoPoint `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Caller is the identity a token issued to u carries. The profile address becomes the default
// delivery address of the user's orders.
func (u User) Caller() Caller {
	return Caller{ID: u.ID, Name: u.Name, Role: u.Role, Address: u.Address}
}

// ProfilePatch carries the profile fields a user may change. Nil fields are left as is.
type ProfilePatch struct {
	Name         *string   `json:"name"`
	Phone        *string   `json:"phone"`
	Address      *string   `json:"address"`
	BusinessName *string   `json:"businessName"`
	Location     *GeoPoint `json:"location"`
}

func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.BusinessName != nil {
		u.BusinessName = *p.BusinessName
	}
	if p.Location != nil {
		u.Location = p.Location
	}
}
