package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/ciresdem/crmtiles/internal/geo"
)

// Syntax selects how placeholders are written in a configuration template.
type Syntax string

const (
	// SyntaxGo uses text/template actions such as {{.name}} or {{printf "%.2f" .w}}.
	SyntaxGo Syntax = "go"
	// SyntaxBrace uses replacement fields such as {name} or {w:.2f}; "{{" and "}}" are literal braces.
	SyntaxBrace Syntax = "brace"
)

// DefaultSyntax is the syntax of templates written for the fetch pipeline.
const DefaultSyntax = SyntaxBrace

var (
	// ErrUnknownPlaceholder is returned when a template references a value other
	// than name, w, e, s or n.
	ErrUnknownPlaceholder = errors.New("unknown template placeholder")
	// ErrSyntaxMismatch is returned when a go-syntax template contains brace fields.
	ErrSyntaxMismatch = errors.New("template contains brace replacement fields")
)

// Placeholders lists the values available to every template, in the order
// name, west, east, south, north.
var Placeholders = []string{"name", "w", "e", "s", "n"}

// braceField matches a single-brace replacement field such as {name} or
// {w:.2f}. YAML flow mappings like {w: 1} do not match.
var braceField = regexp.MustCompile(`(?:^|[^{])(\{(?:` + strings.Join(Placeholders, "|") + `)(?::\.?[0-9]*[fFgGeEs]?)?\})`)

// ParseSyntax validates a template syntax name. Empty means DefaultSyntax.
func ParseSyntax(value string) (Syntax, error) {
	switch Syntax(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return DefaultSyntax, nil
	case SyntaxGo:
		return SyntaxGo, nil
	case SyntaxBrace:
		return SyntaxBrace, nil
	default:
		return "", fmt.Errorf("unknown template syntax %q (want %q or %q)", value, SyntaxGo, SyntaxBrace)
	}
}

// Values are the per-tile inputs substituted into a template.
type Values struct {
	Name   string
	Region geo.Region
}

func (v Values) lookup() map[string]any {
	vals := [...]any{v.Name, v.Region.West, v.Region.East, v.Region.South, v.Region.North}
	m := make(map[string]any, len(Placeholders))
	for i, key := range Placeholders {
		m[key] = vals[i]
	}
	return m
}

// Template is a parsed tile configuration template. It is immutable and safe
// for concurrent use.
type Template struct {
	name   string
	syntax Syntax
	tmpl   *template.Template
	fields []segment
}

// LoadTemplate reads and parses the template at path.
func LoadTemplate(path string, syntax Syntax) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", path, err)
	}
	return NewTemplate(path, string(raw), syntax)
}

// NewTemplate parses raw template text.
func NewTemplate(name, raw string, syntax Syntax) (*Template, error) {
	if syntax == "" {
		syntax = DefaultSyntax
	}
	t := &Template{name: name, syntax: syntax}
	switch syntax {
	case SyntaxGo:
		if m := braceField.FindStringSubmatch(raw); m != nil {
			return nil, fmt.Errorf("parse template %q: %w: %s (use the %q syntax)", name, ErrSyntaxMismatch, m[1], SyntaxBrace)
		}
		tmpl, err := template.New(name).
			Option("missingkey=error").
			Funcs(buildFuncMap()).
			Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		t.tmpl = tmpl
	case SyntaxBrace:
		segs, err := parseBrace(raw)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		t.fields = segs
	default:
		return nil, fmt.Errorf("unknown template syntax %q", syntax)
	}
	return t, nil
}

// Syntax returns the placeholder syntax of the template.
func (t *Template) Syntax() Syntax { return t.syntax }

// Render substitutes the tile values into the template.
func (t *Template) Render(v Values) ([]byte, error) {
	if t.syntax == SyntaxBrace {
		return renderBrace(t.fields, v.lookup())
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, v.lookup()); err != nil {
		if strings.Contains(err.Error(), "map has no entry for key") {
			return nil, fmt.Errorf("%w: execute template %q: %v", ErrUnknownPlaceholder, t.name, err)
		}
		return nil, fmt.Errorf("execute template %q: %w", t.name, err)
	}
	return buf.Bytes(), nil
}

// buildFuncMap constructs the helper functions available to go-syntax templates.
func buildFuncMap() template.FuncMap {
	return template.FuncMap{
		"default": funcDef,
		"toLower": strings.ToLower,
		"toUpper": strings.ToUpper,
		"slug":    funcSlug,
		"deg":     funcDeg,
	}
}

// funcDef returns def when value is empty or whitespace, otherwise value.
func funcDef(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// funcSlug normalizes a value into a lower-case dash-separated slug.
func funcSlug(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, " ", "-")
	v = strings.ReplaceAll(v, "_", "-")
	return v
}

// funcDeg formats a coordinate with the given number of decimals.
func funcDeg(decimals int, v float64) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
