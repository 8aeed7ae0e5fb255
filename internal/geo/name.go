package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

const (
	// NameProperty is the preferred property holding a tile name.
	NameProperty = "NAME"
	// IDProperty is consulted when NameProperty is absent or empty.
	IDProperty = "ID"
)

// ErrInvalidTileName is returned when a resolved name cannot be used as a directory name.
var ErrInvalidTileName = errors.New("invalid tile name")

// PropertyName returns the tile name carried by the feature properties: NAME
// when present and non-empty, else ID. It returns "" when neither is usable.
func PropertyName(props geojson.Properties) string {
	for _, key := range []string{NameProperty, IDProperty} {
		if v := propertyString(props[key]); v != "" {
			return v
		}
	}
	return ""
}

// TileName resolves the tile identifier for a feature, falling back to the
// region's canonical file name. The result is safe to use as a path element.
func TileName(props geojson.Properties, r Region) (string, error) {
	name := PropertyName(props)
	if name == "" {
		name = r.FileName()
	}
	return SanitizeName(name)
}

// SanitizeName replaces path separators and control characters with '_' and
// rejects names that would escape or alias the output directory.
func SanitizeName(name string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':':
			return '_'
		case r < 0x20 || r == 0x7f:
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(name))

	switch cleaned {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidTileName, name)
	}
	return cleaned, nil
}

func propertyString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		if val == 0 {
			return ""
		}
		return strconv.Itoa(val)
	default:
		return ""
	}
}
