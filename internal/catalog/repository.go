// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edig/bibliotheque/internal/core"
)

type Repository interface {
	List(ctx context.Context, params ListParams) ([]Manual, error)
	Get(ctx context.Context, id string) (*Manual, error)
	Create(ctx context.Context, m *Manual) error
	Update(ctx context.Context, m *Manual) error
	Delete(ctx context.Context, id string) (*Manual, error)
	Recent(ctx context.Context, n int) ([]Manual, error)
	Count(ctx context.Context) (int, error)
	CountByLevel(ctx context.Context) ([]LevelCount, error)
	CreationTimes(ctx context.Context) ([]time.Time, error)
	Evolution(ctx context.Context) ([]DayCount, error)
}

type ListParams struct {
	Limit       int
	Offset      int
	OnlyNew     bool
	OnlyPopular bool
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const manualColumns = `id, title, author, publisher, subject, description,
	image_url, level_id, is_new, is_popular, created_by, created_at`

// flagPredicate matches a loosely typed flag column the same way CoerceFlag
// reads it.
func flagPredicate(column, keyword string) string {
	return fmt.Sprintf(
		"lower(trim(%s::text)) IN ('true', 't', '1', '%s')",
		column, keyword,
	)
}

// flagText renders a flag for the TEXT flag columns. pgx has no plan to
// encode a Go bool as text.
func flagText(b bool) string {
	return strconv.FormatBool(b)
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Manual, error) {
	var where []string
	if params.OnlyNew {
		where = append(where, flagPredicate("is_new", keywordNew))
	}
	if params.OnlyPopular {
		where = append(where, flagPredicate("is_popular", keywordPopular))
	}

	query := "SELECT " + manualColumns + " FROM manuals"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC NULLS LAST, id LIMIT $1 OFFSET $2"

	var rows []manualRow
	if err := r.db.SelectContext(ctx, &rows, query,
		params.Limit, params.Offset); err != nil {
		return nil, fmt.Errorf("list manuals: %w", err)
	}

	return toManuals(rows), nil
}

func (r *repository) Get(ctx context.Context, id string) (*Manual, error) {
	query := "SELECT " + manualColumns + " FROM manuals WHERE id = $1"

	var row manualRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get manual: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get manual: %w", err)
	}

	m := row.toManual()
	return &m, nil
}

func (r *repository) Create(ctx context.Context, m *Manual) error {
	query := `
		INSERT INTO manuals (id, title, author, publisher, subject,
		                     description, image_url, level_id, is_new,
		                     is_popular, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID,
		m.Title,
		m.Author,
		m.Publisher,
		m.Subject,
		m.Description,
		m.ImageURL,
		m.LevelID,
		flagText(m.IsNew),
		flagText(m.IsPopular),
		m.CreatedBy,
	)
	if err != nil {
		if core.IsDuplicateKey(err) {
			return fmt.Errorf("create manual: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create manual: %w", err)
	}

	return nil
}

func (r *repository) Update(ctx context.Context, m *Manual) error {
	query := `
		UPDATE manuals
		SET title = $2, author = $3, publisher = $4, subject = $5,
		    description = $6, image_url = $7, level_id = $8,
		    is_new = $9, is_popular = $10
		WHERE id = $1
		RETURNING created_at, created_by`

	var out struct {
		CreatedAt sql.NullTime   `db:"created_at"`
		CreatedBy sql.NullString `db:"created_by"`
	}
	err := r.db.GetContext(ctx, &out, query,
		m.ID,
		m.Title,
		m.Author,
		m.Publisher,
		m.Subject,
		m.Description,
		m.ImageURL,
		m.LevelID,
		flagText(m.IsNew),
		flagText(m.IsPopular),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update manual: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update manual: %w", err)
	}

	m.CreatedAt = out.CreatedAt.Time
	m.CreatedBy = nullable(out.CreatedBy)
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) (*Manual, error) {
	query := "DELETE FROM manuals WHERE id = $1 RETURNING " + manualColumns

	var row manualRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete manual: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete manual: %w", err)
	}

	m := row.toManual()
	return &m, nil
}

func (r *repository) Recent(ctx context.Context, n int) ([]Manual, error) {
	query := "SELECT " + manualColumns + `
		FROM manuals
		ORDER BY created_at DESC NULLS LAST
		LIMIT $1`

	var rows []manualRow
	if err := r.db.SelectContext(ctx, &rows, query, n); err != nil {
		return nil, fmt.Errorf("recent manuals: %w", err)
	}

	return toManuals(rows), nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM manuals"); err != nil {
		return 0, fmt.Errorf("count manuals: %w", err)
	}
	return total, nil
}

// CountByLevel reports every level, including those without manuals.
func (r *repository) CountByLevel(ctx context.Context) ([]LevelCount, error) {
	query := `
		SELECT l.id AS level_id, l.name AS level_name, COUNT(m.id) AS count
		FROM levels l
		LEFT JOIN manuals m ON m.level_id = l.id
		GROUP BY l.id, l.name
		ORDER BY l.name`

	var counts []LevelCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count manuals by level: %w", err)
	}
	return counts, nil
}

func (r *repository) CreationTimes(ctx context.Context) ([]time.Time, error) {
	query := `
		SELECT created_at FROM manuals
		WHERE created_at IS NOT NULL
		ORDER BY created_at ASC`

	var times []time.Time
	if err := r.db.SelectContext(ctx, &times, query); err != nil {
		return nil, fmt.Errorf("manual creation times: %w", err)
	}
	return times, nil
}

func (r *repository) Evolution(ctx context.Context) ([]DayCount, error) {
	query := `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
		       COUNT(*) AS count
		FROM manuals
		WHERE created_at IS NOT NULL
		GROUP BY 1
		ORDER BY 1`

	var days []DayCount
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("manuals evolution: %w", err)
	}
	return days, nil
}

func toManuals(rows []manualRow) []Manual {
	out := make([]Manual, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toManual())
	}
	return out
}

type LevelRepository interface {
	List(ctx context.Context) ([]Level, error)
	Get(ctx context.Context, id string) (*Level, error)
}

type levelRepository struct {
	db core.DBTX
}

func NewLevelRepository(db core.DBTX) LevelRepository {
	return &levelRepository{db: db}
}

func (r *levelRepository) List(ctx context.Context) ([]Level, error) {
	var levels []Level
	if err := r.db.SelectContext(ctx, &levels,
		"SELECT id, name FROM levels"); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return SortLevels(levels), nil
}

func (r *levelRepository) Get(ctx context.Context, id string) (*Level, error) {
	var level Level
	err := r.db.GetContext(ctx, &level,
		"SELECT id, name FROM levels WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get level: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get level: %w", err)
	}
	return &level, nil
}
