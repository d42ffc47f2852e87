package service

import "errors"

// Common sentinel errors returned by the service layer.
var (
	// ErrTaskNotFound indicates the task does not exist or is not visible
	// to the requesting user.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken indicates the requested username is already registered.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials indicates a failed login. Unknown usernames and
	// wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
