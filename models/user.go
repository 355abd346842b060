package models

// User the resource owner model
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

// GetID user id
func (u *User) GetID() string { return u.ID }

// GetUsername login name
func (u *User) GetUsername() string { return u.Username }

// GetEmail email address
func (u *User) GetEmail() string { return u.Email }

// GetFirstName given name
func (u *User) GetFirstName() string { return u.FirstName }

// GetLastName family name
func (u *User) GetLastName() string { return u.LastName }
