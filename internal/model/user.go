package model

import "time"

type User struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Surname      string     `json:"surname"`
	UserName     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	ImageURL     string     `json:"image_url,omitempty"`
	About        string     `json:"about,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	IsOnline     bool       `json:"is_online"`
	Roles        []string   `json:"roles"`
}

func (u *User) Party() Party {
	return Party{ID: u.ID, Name: u.Name, Surname: u.Surname, Email: u.Email, ImageURL: u.ImageURL}
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
