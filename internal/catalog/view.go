// AngelaMos | 2026
// view.go

package catalog

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortMode string

const (
	SortRecent       SortMode = "recent"
	SortAlphabetical SortMode = "alphabetical"
	SortPopular      SortMode = "popular"
)

// CuratedSize is the length of the recent, highlighted and popular rails.
const CuratedSize = 4

func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortAlphabetical:
		return SortAlphabetical
	case SortPopular:
		return SortPopular
	default:
		return SortRecent
	}
}

type Filter struct {
	Level   string
	Subject string
	Search  string
	Sort    SortMode
}

type Stats struct {
	TotalManuals  int `json:"total_manuals"`
	TotalSubjects int `json:"total_subjects"`
	NewManuals    int `json:"new_manuals"`
}

type View struct {
	Manuals           []Manual `json:"manuals"`
	Levels            []Level  `json:"levels"`
	Subjects          []string `json:"subjects"`
	Recent            []Manual `json:"recent"`
	Highlighted       []Manual `json:"highlighted"`
	Popular           []Manual `json:"popular"`
	Stats             Stats    `json:"stats"`
	SelectedLevel     string   `json:"selected_level,omitempty"`
	SelectedLevelName string   `json:"selected_level_name,omitempty"`
	Sort              SortMode `json:"sort"`
	Error             bool     `json:"error"`
}

// newCollator compares French text ignoring case and accents. Collators
// keep internal buffers, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.French, collate.Loose)
}

// Build derives everything a catalog page shows from the fetched items.
// Facets, rails and stats always use the full item set; only Manuals
// reflects the filter.
func Build(items []Manual, levels []Level, f Filter, curated int) View {
	if curated <= 0 {
		curated = CuratedSize
	}
	if items == nil {
		items = []Manual{}
	}

	levelID, levelName := ResolveLevel(levels, f.Level)
	f.Level = levelID
	f.Sort = ParseSortMode(string(f.Sort))

	subjects := Subjects(items)
	byRecency := SortManuals(items, SortRecent)

	var flaggedNew, flaggedPopular []Manual
	for _, m := range items {
		if m.IsNew {
			flaggedNew = append(flaggedNew, m)
		}
		if m.IsPopular {
			flaggedPopular = append(flaggedPopular, m)
		}
	}

	return View{
		Manuals:           SortManuals(FilterManuals(items, f), f.Sort),
		Levels:            SortLevels(levels),
		Subjects:          subjects,
		Recent:            head(byRecency, curated),
		Highlighted:       TakeWithFallback(flaggedNew, items, curated),
		Popular:           TakeWithFallback(flaggedPopular, items, curated),
		Stats:             ComputeStats(items, subjects),
		SelectedLevel:     levelID,
		SelectedLevelName: levelName,
		Sort:              f.Sort,
	}
}

// EmptyView is what a failed fetch renders.
func EmptyView(f Filter) View {
	return View{
		Manuals:     []Manual{},
		Levels:      []Level{},
		Subjects:    []string{},
		Recent:      []Manual{},
		Highlighted: []Manual{},
		Popular:     []Manual{},
		Sort:        ParseSortMode(string(f.Sort)),
		Error:       true,
	}
}

// ResolveLevel matches selector against level ids, then names without
// regard to case. An unknown selector is returned as a raw id.
func ResolveLevel(levels []Level, selector string) (id, name string) {
	if selector == "" {
		return "", ""
	}
	for _, l := range levels {
		if l.ID == selector || strings.EqualFold(l.Name, selector) {
			return l.ID, l.Name
		}
	}
	return selector, ""
}

// FilterManuals applies level, subject and search in that order. f.Level
// must already be a level id.
func FilterManuals(items []Manual, f Filter) []Manual {
	subject := strings.ToLower(strings.TrimSpace(f.Subject))
	term := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]Manual, 0, len(items))
	for _, m := range items {
		if f.Level != "" && str(m.LevelID) != f.Level {
			continue
		}
		if subject != "" && strings.ToLower(strings.TrimSpace(str(m.Subject))) != subject {
			continue
		}
		if term != "" && !strings.Contains(haystack(m), term) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func haystack(m Manual) string {
	return strings.ToLower(strings.Join([]string{
		m.Title,
		m.Author,
		str(m.Publisher),
		str(m.Subject),
		str(m.Description),
	}, " "))
}

// SortManuals returns a sorted copy. Ties keep their input order.
func SortManuals(items []Manual, mode SortMode) []Manual {
	out := slices.Clone(items)
	if out == nil {
		return []Manual{}
	}

	switch mode {
	case SortAlphabetical:
		c := newCollator()
		slices.SortStableFunc(out, func(a, b Manual) int {
			return c.CompareString(a.Title, b.Title)
		})
	case SortPopular:
		slices.SortStableFunc(out, func(a, b Manual) int {
			if a.IsPopular != b.IsPopular {
				if a.IsPopular {
					return -1
				}
				return 1
			}
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	default:
		slices.SortStableFunc(out, func(a, b Manual) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}

	return out
}

// Subjects lists distinct trimmed subjects with a capitalised first
// letter, in French collation order.
func Subjects(items []Manual) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, m := range items {
		s := capitalize(strings.TrimSpace(str(m.Subject)))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	c := newCollator()
	slices.SortStableFunc(out, c.CompareString)
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// TakeWithFallback returns up to n items from primary, padded from
// fallback. Items without an id and repeated ids are skipped.
func TakeWithFallback(primary, fallback []Manual, n int) []Manual {
	out := make([]Manual, 0, n)
	if n <= 0 {
		return out
	}
	seen := make(map[string]struct{}, n)

	for _, src := range [][]Manual{primary, fallback} {
		for _, m := range src {
			if m.ID == "" {
				continue
			}
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}

func ComputeStats(items []Manual, subjects []string) Stats {
	s := Stats{TotalManuals: len(items), TotalSubjects: len(subjects)}
	for _, m := range items {
		if m.IsNew {
			s.NewManuals++
		}
	}
	return s
}

// SortLevels returns levels ordered by name in French collation.
func SortLevels(levels []Level) []Level {
	out := slices.Clone(levels)
	if out == nil {
		return []Level{}
	}
	c := newCollator()
	slices.SortStableFunc(out, func(a, b Level) int {
		return c.CompareString(a.Name, b.Name)
	})
	return out
}

func head(items []Manual, n int) []Manual {
	if len(items) > n {
		return items[:n]
	}
	return items
}
