package identityprovider

import (
	"context"

	"github.com/moffittboard/moffittboard/internal/identity"
)

// IdentityProvider resolves a bearer token issued by the auth service to the caller's identity
//
// Invalid tokens return an error wrapping domain.ErrUnauthenticated.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (identity.Identity, error)
}
