package assistant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errSegmentNotObject = errors.New("segment has no JSON object")

// MergeSegments merges chunk segments per the family's field specs. Segments
// that fail to parse are reported through onSkip and left out.
func MergeSegments(fam Family, segments []string, onSkip func(index int, err error)) (string, error) {
	parsed := make([]map[string]json.RawMessage, 0, len(segments))
	for i, seg := range segments {
		obj, err := decodeSegment(seg, fam.SanitizeFields)
		if err != nil {
			if onSkip != nil {
				onSkip(i, err)
			}
			continue
		}
		parsed = append(parsed, obj)
	}

	var out bytes.Buffer
	out.WriteByte('{')
	for _, fs := range fam.Merge {
		writeKey(&out, fs.Field)
		var err error
		switch fs.Strategy {
		case StrategyGroupedMap:
			err = writeGroupedMap(&out, parsed, fs)
		default:
			err = writeFlatArray(&out, collect(parsed, fs.Field))
		}
		if err != nil {
			return "", fmt.Errorf("merge %s.%s: %w", fam.Name, fs.Field, err)
		}
		out.WriteByte(',')
	}
	out.WriteString(`"isFinalChunk":true}`)
	return out.String(), nil
}

func decodeSegment(seg string, sanitize []string) (map[string]json.RawMessage, error) {
	block, ok := ExtractJSONBlock(seg)
	if !ok {
		return nil, errSegmentNotObject
	}
	block = SanitizeFields(block, sanitize)
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// collect gathers the elements of field across segments. A non-array value
// counts as a single element.
func collect(parsed []map[string]json.RawMessage, field string) []json.RawMessage {
	var items []json.RawMessage
	for _, obj := range parsed {
		items = append(items, elements(obj[field])...)
	}
	return items
}

func elements(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err == nil {
			return arr
		}
	}
	return []json.RawMessage{trimmed}
}

func writeGroupedMap(out *bytes.Buffer, parsed []map[string]json.RawMessage, fs FieldSpec) error {
	var order []string
	groups := map[string][]json.RawMessage{}
	for _, obj := range parsed {
		items := elements(obj[fs.Field])
		if items == nil {
			continue
		}
		key := groupKey(obj[fs.GroupKeyField])
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], items...)
	}
	out.WriteByte('{')
	for i, key := range order {
		if i > 0 {
			out.WriteByte(',')
		}
		writeKey(out, key)
		if err := writeFlatArray(out, groups[key]); err != nil {
			return err
		}
	}
	out.WriteByte('}')
	return nil
}

func groupKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func writeFlatArray(out *bytes.Buffer, items []json.RawMessage) error {
	out.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			out.WriteByte(',')
		}
		if err := json.Compact(out, item); err != nil {
			return err
		}
	}
	out.WriteByte(']')
	return nil
}

func writeKey(out *bytes.Buffer, key string) {
	out.WriteString(quoteJSON(key))
	out.WriteByte(':')
}
