// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edig/bibliotheque/internal/core"
)

type Repository interface {
	Get(ctx context.Context, userID string) (Settings, error)
	Save(ctx context.Context, userID string, s Settings) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Get returns the stored settings, or ErrNotFound when the administrator
// never saved any.
func (r *repository) Get(ctx context.Context, userID string) (Settings, error) {
	var raw []byte
	err := r.db.GetContext(ctx, &raw,
		"SELECT settings FROM admin_settings WHERE user_id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, fmt.Errorf("get settings: %w", core.ErrNotFound)
		}
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}

	return decodeSettings(raw)
}

func (r *repository) Save(ctx context.Context, userID string, s Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	query := `
		INSERT INTO admin_settings (user_id, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET settings = EXCLUDED.settings, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, userID, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return nil
}
