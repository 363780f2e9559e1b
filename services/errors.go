package services

import "errors"

var (
	ErrResourceBusy   = errors.New("resource busy")
	ErrConfigNotFound = errors.New("config not found")
	ErrUserExists     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrTunnelLimit    = errors.New("tunnel limit reached")
	ErrInvalidName    = errors.New("invalid name")
	ErrBadPassword    = errors.New("invalid username or password")
	ErrInvalidContent = errors.New("invalid config content")
	ErrInvalidLimit   = errors.New("tunnel limit must be at least 1")
)
