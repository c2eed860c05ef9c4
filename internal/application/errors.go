package application

import "errors"

// ErrUnauthorized is returned when credentials or a token fail verification.
var ErrUnauthorized = errors.New("unauthorized")
