package llm

import "strings"

// JSON extraction and repair for free-form model output. Models asked for
// JSON still wrap it in fenced code blocks, leave literal newlines inside
// string values, quote prose without escaping, or add trailing commas.
// Everything in this file is a pure string transform; the ladder that applies
// them lives in structured.go.
//
// The quote-escaping pass is a heuristic. It can over- or under-escape
// pathological inputs such as nested quoted dialogue; constraining the model
// output format is the real fix when that starts happening in practice.

// ExtractJSON strips a fenced code block wrapper if present, otherwise
// returns the first balanced {...} span, otherwise the trimmed input.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line (``` or ```json) and a closing fence.
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{") {
		return s
	}
	if span := BalancedSpan(s); span != "" {
		return span
	}
	return s
}

// BalancedSpan returns the first balanced {...} substring found by brace
// depth counting. Braces inside string literals are skipped on a best-effort
// basis; with unescaped quotes in the input the string tracking can be wrong,
// which is acceptable for a repair fallback.
func BalancedSpan(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// Normalize applies the full in-place repair pass: escapes literal control
// characters inside string literals, fixes invalid backslash sequences,
// heuristically escapes prose quotes, and removes trailing commas. Valid
// JSON passes through unchanged.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 64)

	inString := false
	i := 0
	for i < len(s) {
		c := s[i]

		if !inString {
			switch {
			case c == '"':
				inString = true
				b.WriteByte(c)
			case c == ',':
				// Drop the comma when the next non-whitespace closes a
				// container (trailing comma).
				j := i + 1
				for j < len(s) && isSpace(s[j]) {
					j++
				}
				if j < len(s) && (s[j] == '}' || s[j] == ']') {
					// skip the comma
				} else {
					b.WriteByte(c)
				}
			case c < 0x20 && c != '\n' && c != '\r' && c != '\t':
				// stray control character between tokens
			default:
				b.WriteByte(c)
			}
			i++
			continue
		}

		// Inside a string literal.
		switch {
		case c == '\\':
			if i+1 < len(s) && isValidEscape(s[i+1]) {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
				i += 2
			} else {
				// Lone or invalid backslash: double it.
				b.WriteString(`\\`)
				i++
			}
		case c == '"':
			if quoteCloses(s, i) {
				inString = false
				b.WriteByte(c)
			} else {
				// Prose quote embedded in the value.
				b.WriteString(`\"`)
			}
			i++
		case c == '\n':
			b.WriteString(`\n`)
			i++
		case c == '\r':
			b.WriteString(`\r`)
			i++
		case c == '\t':
			b.WriteString(`\t`)
			i++
		case c < 0x20:
			// other literal control characters are dropped
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}

// quoteCloses decides whether the quote at s[i] terminates the current
// string literal. A quote followed (after whitespace) by a structural
// character is a closer; a quote adjacent to prose is treated as embedded
// and gets escaped.
func quoteCloses(s string, i int) bool {
	j := i + 1
	for j < len(s) && isSpace(s[j]) {
		j++
	}
	if j >= len(s) {
		return true
	}
	switch s[j] {
	case ',', '}', ']', ':':
		return true
	}
	return false
}

func isValidEscape(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
