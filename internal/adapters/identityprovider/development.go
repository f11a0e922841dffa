package identityprovider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/identity"
	"github.com/moffittboard/moffittboard/internal/strutils"
)

// DevelopmentProvider trusts the bearer token to be the caller's email
//
// Only for local development without an auth service. The subject is derived from the email, so it is stable across restarts.
type DevelopmentProvider struct{}

func NewDevelopmentProvider() DevelopmentProvider {
	return DevelopmentProvider{}
}

func (DevelopmentProvider) Verify(ctx context.Context, token string) (identity.Identity, error) {
	email, err := strutils.NormalizeEmail(token)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	return identity.Identity{
		Subject: uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(),
		Email:   email,
	}, nil
}

var _ IdentityProvider = DevelopmentProvider{}
