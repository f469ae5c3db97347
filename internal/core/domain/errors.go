package domain

import "errors"

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrHubStopped       = errors.New("hub stopped")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("connection write buffer full")
)
