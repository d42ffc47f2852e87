package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for User
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyUsername       = errors.New("username cannot be empty")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

// ExternalDataTrelloToken is the well-known ExternalData key under which a
// user's Trello access token is stored once the account is linked.
const ExternalDataTrelloToken = "trello_token"

// User represents a registered user. ExternalData is an open key/value map
// used to attach third-party account data, such as the Trello access token.
type User struct {
	ID             uuid.UUID         `json:"id"`
	Username       string            `json:"username"`
	Password       string            `json:"-"` // Plaintext password, only set transiently during registration
	HashedPassword string            `json:"-"` // Never expose the password hash in JSON
	ExternalData   map[string]string `json:"external_data"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewUser creates a new User with the given username and password.
// It generates a new UUID for the user ID and sets the creation timestamp.
// Returns an error if validation fails.
//
// NOTE: This function only sets up the user structure with the plaintext
// password. The caller is responsible for hashing it before storage.
func NewUser(username, password string) (*User, error) {
	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Password:     password, // must be hashed before storage
		ExternalData: map[string]string{},
		CreatedAt:    time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Username == "" {
		return ErrEmptyUsername
	}

	if u.Password == "" && u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// TrelloToken returns the linked Trello access token and whether one exists.
func (u *User) TrelloToken() (string, bool) {
	if u.ExternalData == nil {
		return "", false
	}
	token, ok := u.ExternalData[ExternalDataTrelloToken]
	return token, ok && token != ""
}
