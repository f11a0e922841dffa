package app

import (
	"context"
	"fmt"
	"time"

	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/identity"
	"github.com/moffittboard/moffittboard/internal/logging"
	"github.com/moffittboard/moffittboard/internal/reporting"
	"github.com/moffittboard/moffittboard/internal/strutils"
)

type GetOrCreateUser func(ctx context.Context, id identity.Identity) (domain.User, error)

type userGetOrCreator interface {
	GetOrCreateUser(ctx context.Context, user domain.User) (domain.User, bool, error)
}

// allowedEmailDomain restricts sign ups to one institution, empty allows any email
func BuildGetOrCreateUser(
	repo userGetOrCreator,
	usersCache UsersCache,
	allowedEmailDomain string,
	nowFunc func() time.Time,
) GetOrCreateUser {
	return func(ctx context.Context, id identity.Identity) (domain.User, error) {
		if id.Subject == "" {
			return domain.User{}, fmt.Errorf("%w: missing subject", domain.ErrUnauthenticated)
		}

		email, err := strutils.NormalizeEmail(id.Email)
		if err != nil {
			// The identity provider only hands out verified emails
			reporting.Report(ctx, fmt.Errorf("identity has invalid email: %w", err), map[string]string{
				"subject": id.Subject,
			})
			return domain.User{}, fmt.Errorf("%w: %w", domain.ErrEmailNotAllowed, err)
		}

		if allowedEmailDomain != "" && !strutils.EmailHasDomain(email, allowedEmailDomain) {
			return domain.User{}, fmt.Errorf("%w: must be a %s address", domain.ErrEmailNotAllowed, allowedEmailDomain)
		}

		user, created, err := repo.GetOrCreateUser(ctx, domain.User{
			UserID:    id.Subject,
			Email:     email,
			Name:      strutils.EmailLocalPart(email),
			CreatedAt: nowFunc(),
		})
		if err != nil {
			// NOTE: The repository handles its own error reporting
			return domain.User{}, fmt.Errorf("failed to get or create user: %w", err)
		}

		if created {
			logging.FromContext(ctx).InfoContext(ctx, "Created user", "userID", user.UserID)
			invalidateUsers(usersCache)
		}

		return user, nil
	}
}
