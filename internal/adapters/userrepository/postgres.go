package userrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db     *sqlx.DB
	schema string

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	tracer := otel.Tracer("moffittboard/userrepository/postgres")

	return &Postgres{
		db:     db,
		schema: schema,

		tracer: tracer,
	}
}

type dbUser struct {
	UserID           string         `db:"user_id"`
	Email            string         `db:"email"`
	Name             string         `db:"name"`
	DisplayName      sql.NullString `db:"display_name"`
	TimeSpentMinutes int64          `db:"time_spent_minutes"`
	IsCheckedIn      bool           `db:"is_checked_in"`
	CheckInTime      *time.Time     `db:"check_in_time"`
	CreatedAt        time.Time      `db:"created_at"`
}

const userColumns = "user_id, email, name, display_name, time_spent_minutes, is_checked_in, check_in_time, created_at"

const emailUniqueConstraint = "users_email_unique"

func dbUserToDomain(entry dbUser) domain.User {
	var displayName *string
	if entry.DisplayName.Valid {
		displayName = &entry.DisplayName.String
	}

	var checkInTime *time.Time
	if entry.CheckInTime != nil {
		utc := entry.CheckInTime.UTC()
		checkInTime = &utc
	}

	return domain.User{
		UserID:           entry.UserID,
		Email:            entry.Email,
		Name:             entry.Name,
		DisplayName:      displayName,
		TimeSpentMinutes: entry.TimeSpentMinutes,
		IsCheckedIn:      entry.IsCheckedIn,
		CheckInTime:      checkInTime,
		CreatedAt:        entry.CreatedAt.UTC(),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Report the error and wrap it as a store failure
func (p *Postgres) storeFailure(ctx context.Context, span trace.Span, err error, extras map[string]string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	reporting.Report(ctx, err, extras)
	return fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
}

func (p *Postgres) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		_ = txx.Rollback()
		return nil, fmt.Errorf("failed to set search path: %w", err)
	}

	return txx, nil
}

func (p *Postgres) GetOrCreateUser(ctx context.Context, user domain.User) (domain.User, bool, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetOrCreateUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", user.UserID))

	txx, err := p.beginTx(ctx)
	if err != nil {
		return domain.User{}, false, p.storeFailure(ctx, span, err, map[string]string{"schema": p.schema})
	}
	defer txx.Rollback()

	var entry dbUser
	err = txx.GetContext(
		ctx,
		&entry,
		`INSERT INTO users
		(user_id, email, name, display_name, time_spent_minutes, is_checked_in, check_in_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING `+userColumns,
		user.UserID,
		user.Email,
		user.Name,
		nullString(user.DisplayName),
		user.TimeSpentMinutes,
		user.IsCheckedIn,
		user.CheckInTime,
		user.CreatedAt,
	)
	created := true
	if isEmailTaken(err) {
		span.SetAttributes(attribute.Bool("user.email_taken", true))
		return domain.User{}, false, fmt.Errorf("%w: email already belongs to another account", domain.ErrEmailNotAllowed)
	}
	if errors.Is(err, sql.ErrNoRows) {
		// Already existed
		created = false
		err = txx.GetContext(ctx, &entry, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, user.UserID)
	}
	if err != nil {
		err := fmt.Errorf("failed to get or create user: %w", err)
		return domain.User{}, false, p.storeFailure(ctx, span, err, map[string]string{"userID": user.UserID})
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		return domain.User{}, false, p.storeFailure(ctx, span, err, nil)
	}

	span.SetAttributes(attribute.Bool("user.created", created))
	return dbUserToDomain(entry), created, nil
}

// The insert only resolves conflicts on user_id, so an email taken by another user fails the unique constraint
func isEmailTaken(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == emailUniqueConstraint
}

func (p *Postgres) GetUser(ctx context.Context, userID string) (domain.User, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var entry dbUser
	err := p.db.GetContext(ctx, &entry, fmt.Sprintf(
		`SELECT %s FROM %s.users WHERE user_id = $1`,
		userColumns,
		pq.QuoteIdentifier(p.schema),
	),
		userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		err := fmt.Errorf("failed to select user: %w", err)
		return domain.User{}, p.storeFailure(ctx, span, err, map[string]string{"userID": userID})
	}

	return dbUserToDomain(entry), nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ListUsers")
	defer span.End()

	var entries []dbUser
	err := p.db.SelectContext(ctx, &entries, fmt.Sprintf(
		`SELECT %s FROM %s.users ORDER BY created_at ASC, user_id ASC`,
		userColumns,
		pq.QuoteIdentifier(p.schema),
	))
	if err != nil {
		err := fmt.Errorf("failed to select users: %w", err)
		return nil, p.storeFailure(ctx, span, err, nil)
	}

	users := make([]domain.User, 0, len(entries))
	for _, entry := range entries {
		users = append(users, dbUserToDomain(entry))
	}
	span.SetAttributes(attribute.Int("users.count", len(users)))

	return users, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, userID string, update func(domain.User) (domain.User, error)) (domain.User, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.UpdateUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	txx, err := p.beginTx(ctx)
	if err != nil {
		return domain.User{}, p.storeFailure(ctx, span, err, map[string]string{"schema": p.schema})
	}
	defer txx.Rollback()

	// Lock the row so concurrent updates of the same user are serialized
	var entry dbUser
	err = txx.GetContext(ctx, &entry, `SELECT `+userColumns+` FROM users WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		err := fmt.Errorf("failed to select user for update: %w", err)
		return domain.User{}, p.storeFailure(ctx, span, err, map[string]string{"userID": userID})
	}

	updated, err := update(dbUserToDomain(entry))
	if err != nil {
		return domain.User{}, err
	}
	if updated.UserID != userID {
		err := fmt.Errorf("update changed the user id")
		return domain.User{}, p.storeFailure(ctx, span, err, map[string]string{"userID": userID, "updatedUserID": updated.UserID})
	}

	err = txx.GetContext(
		ctx,
		&entry,
		`UPDATE users SET
			display_name = $2,
			time_spent_minutes = $3,
			is_checked_in = $4,
			check_in_time = $5
		WHERE user_id = $1
		RETURNING `+userColumns,
		userID,
		nullString(updated.DisplayName),
		updated.TimeSpentMinutes,
		updated.IsCheckedIn,
		updated.CheckInTime,
	)
	if err != nil {
		err := fmt.Errorf("failed to update user: %w", err)
		return domain.User{}, p.storeFailure(ctx, span, err, map[string]string{"userID": userID})
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		return domain.User{}, p.storeFailure(ctx, span, err, map[string]string{"userID": userID})
	}

	return dbUserToDomain(entry), nil
}

func (p *Postgres) GetLastResetAt(ctx context.Context) (*time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetLastResetAt")
	defer span.End()

	var lastResetAt *time.Time
	err := p.db.GetContext(ctx, &lastResetAt, fmt.Sprintf(
		`SELECT last_reset_at FROM %s.leaderboard_resets WHERE id = 1`,
		pq.QuoteIdentifier(p.schema),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The marker row is created by the migrations
			return nil, nil
		}
		err := fmt.Errorf("failed to select last reset: %w", err)
		return nil, p.storeFailure(ctx, span, err, nil)
	}

	if lastResetAt != nil {
		utc := lastResetAt.UTC()
		lastResetAt = &utc
	}
	return lastResetAt, nil
}

func (p *Postgres) ResetIfDue(ctx context.Context, now time.Time, isDue func(lastResetAt *time.Time) bool) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ResetIfDue")
	defer span.End()

	txx, err := p.beginTx(ctx)
	if err != nil {
		return false, p.storeFailure(ctx, span, err, map[string]string{"schema": p.schema})
	}
	defer txx.Rollback()

	// Upsert and lock the marker row so concurrent resets are serialized
	var lastResetAt *time.Time
	err = txx.GetContext(ctx, &lastResetAt, `
		INSERT INTO leaderboard_resets (id, last_reset_at) VALUES (1, NULL)
		ON CONFLICT (id) DO UPDATE SET id = leaderboard_resets.id
		RETURNING last_reset_at`,
	)
	if err != nil {
		err := fmt.Errorf("failed to lock reset marker: %w", err)
		return false, p.storeFailure(ctx, span, err, nil)
	}

	if !isDue(lastResetAt) {
		span.SetAttributes(attribute.Bool("reset.performed", false))
		return false, nil
	}

	result, err := txx.ExecContext(ctx, `
		UPDATE users SET
			time_spent_minutes = 0,
			is_checked_in = FALSE,
			check_in_time = NULL`,
	)
	if err != nil {
		err := fmt.Errorf("failed to reset users: %w", err)
		return false, p.storeFailure(ctx, span, err, nil)
	}

	_, err = txx.ExecContext(ctx, `UPDATE leaderboard_resets SET last_reset_at = $1 WHERE id = 1`, now)
	if err != nil {
		err := fmt.Errorf("failed to store reset marker: %w", err)
		return false, p.storeFailure(ctx, span, err, map[string]string{"now": now.Format(time.RFC3339)})
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		return false, p.storeFailure(ctx, span, err, nil)
	}

	span.SetAttributes(attribute.Bool("reset.performed", true))
	if affected, err := result.RowsAffected(); err == nil {
		span.SetAttributes(attribute.Int64("reset.users", affected))
	}

	return true, nil
}

var _ UserRepository = (*Postgres)(nil)
