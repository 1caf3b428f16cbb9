// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edig/bibliotheque/internal/core"
)

type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	FindByID(ctx context.Context, id string) (*RefreshToken, error)
	MarkAsUsed(ctx context.Context, id, replacedByID string) error
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	GetActiveSessionsForUser(
		ctx context.Context,
		userID string,
	) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
	RecordSignIn(ctx context.Context, event SignInEvent) error
	SignInsPerDay(ctx context.Context, since time.Time) ([]DayCount, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const tokenColumns = `id, user_id, token_hash, family_id, expires_at,
	created_at, is_used, used_at, revoked_at, replaced_by_id, user_agent,
	ip_address`

// expiredGrace keeps expired tokens around for a day so reuse of a
// just-expired token is still reported as reuse.
const expiredGrace = 24 * time.Hour

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	err := r.db.GetContext(ctx, &token.CreatedAt, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, family_id,
		                            expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.FamilyID,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *repository) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	return r.findOne(ctx, "token_hash", tokenHash)
}

func (r *repository) FindByID(ctx context.Context, id string) (*RefreshToken, error) {
	return r.findOne(ctx, "id", id)
}

// findOne looks a token up by a fixed column name.
func (r *repository) findOne(ctx context.Context, column, value string) (*RefreshToken, error) {
	query := "SELECT " + tokenColumns + " FROM refresh_tokens WHERE " + column + " = $1"

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

// MarkAsUsed fails with ErrNotFound when the token was already used,
// which is how a concurrent rotation loses.
func (r *repository) MarkAsUsed(ctx context.Context, id, replacedByID string) error {
	_, err := r.exec(ctx, "mark refresh token as used", true, `
		UPDATE refresh_tokens
		SET is_used = true, used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND is_used = false`, id, replacedByID)
	return err
}

func (r *repository) RevokeByID(ctx context.Context, id string) error {
	_, err := r.exec(ctx, "revoke refresh token", true, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

func (r *repository) RevokeByFamilyID(ctx context.Context, familyID string) error {
	_, err := r.exec(ctx, "revoke token family", false, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`, familyID)
	return err
}

func (r *repository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.exec(ctx, "revoke all user tokens", false, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}

func (r *repository) GetActiveSessionsForUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	query := "SELECT " + tokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
		  AND revoked_at IS NULL
		  AND is_used = false
		  AND expires_at > NOW()
		ORDER BY created_at DESC`

	var tokens []RefreshToken
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}

	return tokens, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	return r.exec(ctx, "delete expired tokens", false,
		"DELETE FROM refresh_tokens WHERE expires_at < $1",
		time.Now().Add(-expiredGrace))
}

// exec runs a write and returns the affected row count. With
// mustAffect, zero rows becomes ErrNotFound.
func (r *repository) exec(
	ctx context.Context,
	op string,
	mustAffect bool,
	query string,
	args ...any,
) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if mustAffect && rows == 0 {
		return 0, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return rows, nil
}

func (r *repository) RecordSignIn(ctx context.Context, event SignInEvent) error {
	query := `
		INSERT INTO signin_events (user_id, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query,
		event.UserID,
		event.UserAgent,
		event.IPAddress,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record sign-in: %w", err)
	}

	return nil
}

// SignInsPerDay counts sign-ins per UTC day from since onwards. Days
// without sign-ins are absent.
func (r *repository) SignInsPerDay(
	ctx context.Context,
	since time.Time,
) ([]DayCount, error) {
	query := `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'),
		               'YYYY-MM-DD') AS day,
		       COUNT(*) AS count
		FROM signin_events
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1`

	var days []DayCount
	if err := r.db.SelectContext(ctx, &days, query, since); err != nil {
		return nil, fmt.Errorf("sign-ins per day: %w", err)
	}

	return days, nil
}
