package auth

import "context"

// Remote is the account service that owns credentials.
type Remote interface {
	Login(ctx context.Context, req LoginRequest) (RemoteSession, error)
	Register(ctx context.Context, req RegisterRequest) (RemoteSession, error)
	Google(ctx context.Context, credential string) (RemoteSession, error)
	Logout(ctx context.Context, token string) error
}
