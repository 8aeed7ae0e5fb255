package geo

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Match is a single "{PATH}={VALUE}" statement evaluated against feature
// properties with gjson dot syntax.
type Match struct {
	Path  string
	Value string
}

// String returns the statement in PATH=VALUE form.
func (m Match) String() string {
	return m.Path + "=" + m.Value
}

// ParseMatches parses PATH=VALUE statements.
func ParseMatches(args []string) ([]Match, error) {
	out := make([]Match, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		path, value, ok := strings.Cut(arg, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid match %q, expected PATH=VALUE", arg)
		}
		out = append(out, Match{Path: path, Value: strings.TrimSpace(value)})
	}
	return out, nil
}

// Filter selects features by property. A feature passes when it matches every
// Include statement and no Exclude statement.
type Filter struct {
	Include []Match
	Exclude []Match
}

// Empty reports whether the filter has no statements.
func (f Filter) Empty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Allows reports whether the feature passes the filter.
func (f Filter) Allows(feat Feature) bool {
	for _, m := range f.Include {
		if !m.matches(feat.rawProps) {
			return false
		}
	}
	for _, m := range f.Exclude {
		if m.matches(feat.rawProps) {
			return false
		}
	}
	return true
}

func (m Match) matches(props []byte) bool {
	if len(props) == 0 {
		return false
	}
	res := gjson.GetBytes(props, m.Path)
	if !res.Exists() {
		return false
	}
	return res.String() == m.Value
}
