package auth

import (
	"errors"
)

var (
	ErrUnknownHostmask    = errors.New("hostmask is not known for this account")
	ErrAccountRegistered  = errors.New("account already registered")
	ErrThrottled          = errors.New("too many login attempts")
	ErrBadCredential      = errors.New("password not known")
	ErrAlreadyLoggedIn    = errors.New("already logged in")
	ErrNotYetResolved     = errors.New("session not resolved yet")
	ErrSelfOnly           = errors.New("only self-registration is allowed")
	ErrTargetUnregistered = errors.New("target user is not registered")
)
