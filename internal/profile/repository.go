// AngelaMos | 2026
// repository.go

package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edig/bibliotheque/internal/core"
)

// Lookup columns, tried in this order.
const (
	ColumnID     = "id"
	ColumnUserID = "user_id"
	ColumnEmail  = "email"
)

var lookupColumns = map[string]bool{
	ColumnID:     true,
	ColumnUserID: true,
	ColumnEmail:  true,
}

type Repository interface {
	FindBy(ctx context.Context, column, value string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Upsert(ctx context.Context, f Fields) error
	SetRole(ctx context.Context, userID, role string) error
	Delete(ctx context.Context, userID string) error
}

// Fields are the profile columns this service writes.
type Fields struct {
	UserID       string
	Email        string
	FullName     string
	Role         string
	Phone        string
	Organization string
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// FindBy returns the first profile whose column equals value, or
// ErrNotFound. A column the table lacks is also reported as not found.
func (r *repository) FindBy(
	ctx context.Context,
	column, value string,
) (Record, error) {
	if !lookupColumns[column] {
		return nil, fmt.Errorf("find profile by %s: %w", column, core.ErrInvalidInput)
	}

	query := fmt.Sprintf("SELECT * FROM profiles WHERE %s = $1 LIMIT 1", column)

	rec := Record{}
	err := r.db.QueryRowxContext(ctx, query, value).MapScan(rec)
	if errors.Is(err, sql.ErrNoRows) || core.IsUndefinedColumn(err) {
		return nil, fmt.Errorf("find profile by %s: %w", column, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by %s: %w", column, err)
	}

	return rec, nil
}

func (r *repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryxContext(ctx, "SELECT * FROM profiles")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []Record
	for rows.Next() {
		rec := Record{}
		if err := rows.MapScan(rec); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	return out, nil
}

func (r *repository) Upsert(ctx context.Context, f Fields) error {
	query := `
		INSERT INTO profiles (id, user_id, email, full_name, role, phone,
		                      organization)
		VALUES ($1, $1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
		        NULLIF($6, ''))
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = COALESCE(EXCLUDED.full_name, profiles.full_name),
		    role = COALESCE(EXCLUDED.role, profiles.role),
		    phone = COALESCE(EXCLUDED.phone, profiles.phone),
		    organization = COALESCE(EXCLUDED.organization, profiles.organization)`

	_, err := r.db.ExecContext(ctx, query,
		f.UserID,
		f.Email,
		f.FullName,
		f.Role,
		f.Phone,
		f.Organization,
	)
	if err != nil {
		if core.IsDuplicateKey(err) {
			return fmt.Errorf("upsert profile: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}

func (r *repository) SetRole(ctx context.Context, userID, role string) error {
	query := `
		UPDATE profiles SET role = $2
		WHERE id = $1 OR user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, role)
	if err != nil {
		return fmt.Errorf("set profile role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set profile role: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set profile role: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM profiles WHERE id = $1 OR user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
