// AngelaMos | 2026
// rules.go

package role

import (
	"fmt"
	"strings"
)

type Source string

const (
	SourceProfile      Source = "profile"
	SourceUserMetadata Source = "user_metadata"
	SourceAppMetadata  Source = "app_metadata"
)

type Kind string

const (
	// KindProfile reads the role of the stored profile.
	KindProfile Kind = "profile_role"
	// KindScalar reads the first non-empty string among Keys.
	KindScalar Kind = "scalar"
	// KindArray reads the first element of an array claim, or a bare string.
	KindArray Kind = "array"
	// KindFlag yields admin when any key holds a truthy value.
	KindFlag Kind = "admin_flag"
)

// Rule is one step of role resolution. Rules are evaluated in order and
// the first one producing a raw role wins.
type Rule struct {
	Kind    Kind
	Sources []Source
	Keys    []string
}

func (r Rule) String() string {
	srcs := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		srcs[i] = string(s)
	}
	return fmt.Sprintf("%s(%s)[%s]", r.Kind, strings.Join(srcs, ","), strings.Join(r.Keys, ","))
}

var (
	scalarKeys = []string{"role", "user_role", "account_role", "profile_role"}
	flagKeys   = []string{"is_admin", "admin", "admin_flag", "isAdmin"}
	truthy     = map[string]struct{}{"true": {}, "1": {}, "yes": {}, "oui": {}}
)

// The array rules read app_metadata before user_metadata while the scalar
// rules go the other way. Stored accounts depend on that order.
var defaultRules = []Rule{
	{Kind: KindProfile, Sources: []Source{SourceProfile}},
	{Kind: KindScalar, Sources: []Source{SourceUserMetadata}, Keys: scalarKeys},
	{Kind: KindScalar, Sources: []Source{SourceAppMetadata}, Keys: scalarKeys},
	{Kind: KindArray, Sources: []Source{SourceAppMetadata}, Keys: []string{"roles"}},
	{Kind: KindArray, Sources: []Source{SourceUserMetadata}, Keys: []string{"roles"}},
	{
		Kind:    KindFlag,
		Sources: []Source{SourceUserMetadata, SourceAppMetadata},
		Keys:    flagKeys,
	},
}

// Rules returns the resolution order.
func Rules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

type facts struct {
	profileRole string
	bags        map[Source]map[string]any
}

func (r Rule) apply(f facts) (string, bool) {
	switch r.Kind {
	case KindProfile:
		raw := clean(f.profileRole)
		return raw, raw != ""

	case KindScalar:
		for _, src := range r.Sources {
			bag := f.bags[src]
			for _, key := range r.Keys {
				s, ok := bag[key].(string)
				if !ok {
					continue
				}
				if raw := clean(s); raw != "" {
					return raw, true
				}
			}
		}

	case KindArray:
		for _, src := range r.Sources {
			for _, key := range r.Keys {
				if raw := firstElement(f.bags[src][key]); raw != "" {
					return raw, true
				}
			}
		}

	case KindFlag:
		for _, src := range r.Sources {
			bag := f.bags[src]
			for _, key := range r.Keys {
				if isTruthy(bag[key]) {
					return string(Admin), true
				}
			}
		}
	}

	return "", false
}

func firstElement(v any) string {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 || t[0] == nil {
			return ""
		}
		return clean(fmt.Sprint(t[0]))
	case []string:
		if len(t) == 0 {
			return ""
		}
		return clean(t[0])
	case string:
		return clean(t)
	}
	return ""
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	case string:
		_, ok := truthy[clean(t)]
		return ok
	}
	return false
}
