package models

type UserKind string

const (
	UserKindAdmin     UserKind = "admin"
	UserKindEphemeral UserKind = "ephemeral"
)

// TestUser is an identity used to authenticate API calls.
type TestUser struct {
	ID       string
	Name     string
	Email    string
	Password string
	Token    string
	Kind     UserKind
}

func (u *TestUser) IsAdmin() bool {
	return u.Kind == UserKindAdmin
}
