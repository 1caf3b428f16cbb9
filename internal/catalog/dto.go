// AngelaMos | 2026
// dto.go

package catalog

import (
	"net/http"
	"strconv"
	"strings"
)

type ManualRequest struct {
	Title       string  `json:"title"       validate:"required,min=1,max=255"`
	Author      string  `json:"author"      validate:"required,min=1,max=255"`
	Publisher   *string `json:"publisher"   validate:"omitempty,max=255"`
	Subject     *string `json:"subject"     validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	ImageURL    *string `json:"image_url"   validate:"omitempty,url,max=2048"`
	LevelID     *string `json:"level_id"    validate:"omitempty,max=64"`
	IsNew       bool    `json:"is_new"`
	IsPopular   bool    `json:"is_popular"`
}

func (req ManualRequest) apply(m *Manual) {
	m.Title = strings.TrimSpace(req.Title)
	m.Author = strings.TrimSpace(req.Author)
	m.Publisher = trimmed(req.Publisher)
	m.Subject = trimmed(req.Subject)
	m.Description = trimmed(req.Description)
	m.ImageURL = trimmed(req.ImageURL)
	m.LevelID = trimmed(req.LevelID)
	m.IsNew = req.IsNew
	m.IsPopular = req.IsPopular
}

// trimmed maps blank optional text to NULL.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

type CoverResponse struct {
	URL string `json:"url"`
}

type PageResponse struct {
	Manuals []Manual `json:"manuals"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	HasMore bool     `json:"has_more"`
}

type NouveautesResponse struct {
	Manuals []Manual `json:"manuals"`
	Error   bool     `json:"error"`
}

// FilterFromQuery reads niveau/level, matiere/subject, q/search and sort.
func FilterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{
		Level:   firstNonEmpty(q.Get("niveau"), q.Get("level")),
		Subject: firstNonEmpty(q.Get("matiere"), q.Get("subject")),
		Search:  firstNonEmpty(q.Get("q"), q.Get("search")),
		Sort:    ParseSortMode(q.Get("sort")),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
