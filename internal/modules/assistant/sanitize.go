package assistant

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"
)

var fieldPatterns sync.Map

func fieldPattern(field string) *regexp.Regexp {
	if re, ok := fieldPatterns.Load(field); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"`)
	fieldPatterns.Store(field, re)
	return re
}

// SanitizeFields re-escapes the string values of the named fields so that
// stray quotes, backslashes and raw newlines in generated prose do not break
// parsing. Values that are already valid JSON strings come out unchanged.
func SanitizeFields(raw string, fields []string) string {
	out := raw
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = sanitizeField(out, f)
	}
	return out
}

func sanitizeField(raw, field string) string {
	re := fieldPattern(field)
	var b strings.Builder
	pos := 0
	for pos < len(raw) {
		loc := re.FindStringIndex(raw[pos:])
		if loc == nil {
			break
		}
		valStart := pos + loc[1]
		end := findValueEnd(raw, valStart)
		if end < 0 {
			break
		}
		b.WriteString(raw[pos : valStart-1])
		b.WriteString(quoteJSON(unescapeLoose(raw[valStart:end])))
		pos = end + 1
	}
	b.WriteString(raw[pos:])
	return b.String()
}

// findValueEnd finds the quote that closes a string value: one followed by
// optional whitespace and then '}', ']', end of input, or ',' and the next key.
// Escaped quotes never close a value.
func findValueEnd(raw string, from int) int {
	for i := from; i < len(raw); i++ {
		if raw[i] == '"' && !escapedAt(raw, from, i) && closesValue(raw, i+1) {
			return i
		}
	}
	return -1
}

// escapedAt reports whether raw[i] is preceded by an odd run of backslashes
// that starts no earlier than from.
func escapedAt(raw string, from, i int) bool {
	n := 0
	for j := i - 1; j >= from && raw[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func closesValue(raw string, j int) bool {
	j = skipSpace(raw, j)
	if j >= len(raw) {
		return true
	}
	switch raw[j] {
	case '}', ']':
		return true
	case ',':
		k := skipSpace(raw, j+1)
		return k < len(raw) && raw[k] == '"'
	}
	return false
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// unescapeLoose decodes the JSON escapes it recognizes and keeps anything else literally.
func unescapeLoose(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch n := s[i+1]; n {
		case '"', '\\', '/':
			b.WriteByte(n)
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case 'b':
			b.WriteByte('\b')
			i++
		case 'f':
			b.WriteByte('\f')
			i++
		case 'u':
			r, width, ok := decodeUnicodeEscape(s, i)
			if !ok {
				b.WriteByte(c)
				continue
			}
			b.WriteRune(r)
			i += width - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// decodeUnicodeEscape reads \uXXXX (and a trailing low surrogate) at s[i:].
func decodeUnicodeEscape(s string, i int) (rune, int, bool) {
	if i+6 > len(s) {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[i+2:i+6], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	r := rune(v)
	if utf16.IsSurrogate(r) && i+12 <= len(s) && s[i+6] == '\\' && s[i+7] == 'u' {
		if v2, err := strconv.ParseUint(s[i+8:i+12], 16, 32); err == nil {
			if dec := utf16.DecodeRune(r, rune(v2)); dec != unicode.ReplacementChar {
				return dec, 12, true
			}
		}
	}
	return r, 6, true
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
