package model

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Member struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsOwner  bool      `json:"is_owner"`
	JoinedAt time.Time `json:"joined_at"`
}

type Family struct {
	ID         string   `json:"id"`
	InviteCode string   `json:"invite_code"`
	OwnerID    string   `json:"owner_id"`
	IsOwner    bool     `json:"is_owner"`
	Members    []Member `json:"members"`
}

// Identity is what a client presents to authenticate. Secret is hashed on
// first use and verified on every later call.
type Identity struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// Session is the result of authenticating: the user, their family and a
// bearer token for further calls.
type Session struct {
	User   User   `json:"user"`
	Family Family `json:"family"`
	Token  string `json:"token"`
}
