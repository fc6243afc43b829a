package model

import "context"

// Authenticator checks user credentials. Implementations live outside this module.
type Authenticator interface {
	Authenticate(ctx context.Context, username, secret string) (*User, error)
}
