package kickapi

import "context"

// CredentialSource supplies a bearer token on demand. Implementations decide
// where the token lives (env var, database row, test fixture).
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// StaticToken is a CredentialSource for a fixed token, e.g. from the
// environment.
type StaticToken string

func (t StaticToken) Credential(context.Context) (string, error) {
	if t == "" {
		return "", ErrUnauthenticated
	}
	return string(t), nil
}

// CredentialFunc adapts a function to the CredentialSource interface.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Credential(ctx context.Context) (string, error) { return f(ctx) }
