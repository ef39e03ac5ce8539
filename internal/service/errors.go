package service

import "errors"

var (
	// ErrUserExists is returned when registering an email that already has an account.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when a reset is requested for an unknown email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput indicates a required argument was empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidToken indicates the reset token does not belong to any user.
	ErrInvalidToken = errors.New("invalid reset token")
)
