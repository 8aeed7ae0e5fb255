package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// segment is either literal text or a replacement field of a brace template.
type segment struct {
	literal string
	field   string
	spec    string
	isField bool
}

func parseBrace(raw string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); {
		switch raw[i] {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unmatched '{' at offset %d", i)
			}
			body := raw[i+1 : i+1+end]
			if strings.ContainsRune(body, '{') {
				return nil, fmt.Errorf("nested '{' in field at offset %d", i)
			}
			key, spec, _ := strings.Cut(body, ":")
			flush()
			segs = append(segs, segment{field: strings.TrimSpace(key), spec: spec, isField: true})
			i += end + 2
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		default:
			lit.WriteByte(raw[i])
			i++
		}
	}
	flush()
	return segs, nil
}

func renderBrace(segs []segment, values map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	for _, seg := range segs {
		if !seg.isField {
			buf.WriteString(seg.literal)
			continue
		}
		v, ok := values[seg.field]
		if !ok {
			return nil, fmt.Errorf("%w: {%s} (want one of %s)", ErrUnknownPlaceholder, seg.field, strings.Join(Placeholders, ", "))
		}
		s, err := formatField(v, seg.spec)
		if err != nil {
			return nil, fmt.Errorf("format {%s:%s}: %w", seg.field, seg.spec, err)
		}
		buf.WriteString(s)
	}
	return buf.Bytes(), nil
}

func formatField(v any, spec string) (string, error) {
	switch val := v.(type) {
	case string:
		if spec != "" && spec != "s" {
			return "", fmt.Errorf("unsupported format spec %q for text", spec)
		}
		return val, nil
	case float64:
		return formatFloat(val, spec)
	default:
		return fmt.Sprint(v), nil
	}
}

// formatFloat supports "", "f", "g", "e" with an optional ".N" precision.
func formatFloat(v float64, spec string) (string, error) {
	if spec == "" {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s, nil
	}

	verb := spec[len(spec)-1]
	if verb != 'f' && verb != 'g' && verb != 'e' {
		return "", fmt.Errorf("unsupported format spec %q", spec)
	}
	prec := 6
	if p := spec[:len(spec)-1]; p != "" {
		if !strings.HasPrefix(p, ".") {
			return "", fmt.Errorf("unsupported format spec %q", spec)
		}
		n, err := strconv.Atoi(p[1:])
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid precision in format spec %q", spec)
		}
		prec = n
	}
	return strconv.FormatFloat(v, verb, prec, 64), nil
}
