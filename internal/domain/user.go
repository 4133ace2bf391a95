package domain

// MinUsernameLength is the shortest accepted username, in characters.
const MinUsernameLength = 3

// User is an account that can log in with the shared password.
// No credential is stored per user.
type User struct {
	Record
	Username      string `json:"username" validate:"required,min=3,max=64"`
	FavoriteGenre string `json:"favorite_genre" validate:"required,max=100"`
}

// Token is a signed credential handed out by login. It is never persisted.
type Token struct {
	Value string
}
