package models

// User is one operator login. The users document is keyed by username, so the
// name lives outside the struct.
type User struct {
	Password  string `json:"password"`
	CreatedAt string `json:"created_at"`
}

type NewUser struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
