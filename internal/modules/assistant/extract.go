package assistant

import "strings"

// ChunkDelimiter separates chunks in concatenated_json.
const ChunkDelimiter = "***SplitPoint***"

// ExtractJSONBlock returns the span from the first '{' to the last '}'.
func ExtractJSONBlock(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// AppendChunk joins chunk onto the accumulated text.
func AppendChunk(concatenated, chunk string) string {
	if concatenated == "" {
		return chunk
	}
	return concatenated + ChunkDelimiter + "\n" + chunk
}

// SplitChunks splits accumulated text into non-empty trimmed segments.
func SplitChunks(concatenated string) []string {
	parts := strings.Split(concatenated, ChunkDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
