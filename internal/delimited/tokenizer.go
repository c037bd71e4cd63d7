package delimited

import "strings"

// DefaultDelimiter is the field separator used when Options.Delimiter is zero.
const DefaultDelimiter = ','

// quote is the only quoting character recognised by the tokenizer.
const quote = '"'

// scanState is the tokenizer state while walking a line.
type scanState int

const (
	stateUnquoted scanState = iota
	stateQuoted
)

// TokenizeLine splits one line into fields.
//
// A quote character toggles between the unquoted and quoted states and is
// kept in the field buffer. The delimiter ends a field only in the unquoted
// state. The buffer is always flushed at end of line, so a trailing
// delimiter yields a trailing empty field. Each field is trimmed and, when
// wrapped in a single pair of quotes, unwrapped.
//
// An unterminated quote never fails: everything after it is literal content.
func TokenizeLine(line string, delim rune) []string {
	raw := splitRaw(line, delim)
	for i, tok := range raw {
		raw[i] = unwrapQuotes(tok)
	}
	return raw
}

// splitRaw performs the state-machine split and trims each field but leaves
// wrapping quotes in place. Callers that need to know whether a field was
// quoted (list splitting) work from this form.
func splitRaw(line string, delim rune) []string {
	if delim == 0 {
		delim = DefaultDelimiter
	}

	var (
		fields []string
		buf    strings.Builder
		state  = stateUnquoted
	)

	flush := func() {
		fields = append(fields, strings.TrimSpace(buf.String()))
		buf.Reset()
	}

	for _, r := range line {
		switch {
		case r == quote:
			if state == stateUnquoted {
				state = stateQuoted
			} else {
				state = stateUnquoted
			}
			buf.WriteRune(r)
		case r == delim && state == stateUnquoted:
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()

	return fields
}

// isQuoted reports whether s is wrapped in a matching pair of quotes.
func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == quote && s[len(s)-1] == quote
}

// unwrapQuotes strips one wrapping pair of quotes. Inner content, including
// delimiters and further quotes, is preserved verbatim.
func unwrapQuotes(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}
