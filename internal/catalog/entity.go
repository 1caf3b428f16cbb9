// AngelaMos | 2026
// entity.go

package catalog

import (
	"database/sql"
	"strings"
	"time"
)

const (
	keywordNew     = "nouveau"
	keywordPopular = "populaire"
)

type Manual struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Publisher   *string   `json:"publisher"`
	Subject     *string   `json:"subject"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"image_url"`
	LevelID     *string   `json:"level_id"`
	IsNew       bool      `json:"is_new"`
	IsPopular   bool      `json:"is_popular"`
	CreatedBy   *string   `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Level struct {
	ID   string `db:"id"   json:"id"`
	Name string `db:"name" json:"name"`
}

type LevelCount struct {
	LevelID   string `db:"level_id"   json:"level_id"`
	LevelName string `db:"level_name" json:"level_name"`
	Count     int    `db:"count"      json:"count"`
}

type DayCount struct {
	Date  string `db:"day"   json:"date"`
	Count int    `db:"count" json:"count"`
}

// manualRow mirrors the stored row. Title and author may be NULL and the
// flags may hold booleans, numbers or text depending on how the row was
// imported.
type manualRow struct {
	ID          string         `db:"id"`
	Title       sql.NullString `db:"title"`
	Author      sql.NullString `db:"author"`
	Publisher   sql.NullString `db:"publisher"`
	Subject     sql.NullString `db:"subject"`
	Description sql.NullString `db:"description"`
	ImageURL    sql.NullString `db:"image_url"`
	LevelID     sql.NullString `db:"level_id"`
	IsNew       any            `db:"is_new"`
	IsPopular   any            `db:"is_popular"`
	CreatedBy   sql.NullString `db:"created_by"`
	CreatedAt   sql.NullTime   `db:"created_at"`
}

func (r manualRow) toManual() Manual {
	m := Manual{
		ID:          r.ID,
		Title:       r.Title.String,
		Author:      r.Author.String,
		Publisher:   nullable(r.Publisher),
		Subject:     nullable(r.Subject),
		Description: nullable(r.Description),
		ImageURL:    nullable(r.ImageURL),
		LevelID:     nullable(r.LevelID),
		IsNew:       CoerceFlag(r.IsNew, keywordNew),
		IsPopular:   CoerceFlag(r.IsPopular, keywordPopular),
		CreatedBy:   nullable(r.CreatedBy),
	}
	if r.CreatedAt.Valid {
		m.CreatedAt = r.CreatedAt.Time
	}
	return m
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// CoerceFlag reads a loosely stored boolean. Numbers count when equal to
// 1; text counts when it is "true", "1" or keyword, ignoring case and
// surrounding space.
func CoerceFlag(v any, keyword string) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t == 1
	case int32:
		return t == 1
	case int:
		return t == 1
	case float64:
		return t == 1
	case []byte:
		return textFlag(string(t), keyword)
	case string:
		return textFlag(t, keyword)
	}
	return false
}

func textFlag(s, keyword string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", keyword:
		return true
	}
	return false
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
