package shardpool

import (
	"strings"
)

// statementKind tells the dispatcher how to run a statement.
type statementKind int

const (
	// stmtExec has no result set; it runs in a transaction and reports the affected count.
	stmtExec statementKind = iota
	// stmtQuery reads rows.
	stmtQuery
	// stmtMutatingQuery may change data and returns rows: CALL, or a write with RETURNING.
	// It runs in a transaction and reports its rows.
	stmtMutatingQuery
)

// readKeywords lead statements that return a result set.
var readKeywords = map[string]struct{}{
	"SELECT":   {},
	"SHOW":     {},
	"DESCRIBE": {},
	"DESC":     {},
	"EXPLAIN":  {},
	"WITH":     {},
	"VALUES":   {},
	"TABLE":    {},
	"PRAGMA":   {},
	"HELP":     {},
}

// cteBodies are the statements a WITH clause can introduce.
var cteBodies = map[string]struct{}{
	"SELECT":  {},
	"VALUES":  {},
	"TABLE":   {},
	"INSERT":  {},
	"REPLACE": {},
	"UPDATE":  {},
	"DELETE":  {},
}

type word struct {
	text  string
	depth int
}

// classify decides whether query yields rows. The leading keyword picks the
// family; top-level INTO turns a SELECT into a statement without a result set and
// top-level RETURNING turns a write into one with a result set.
func classify(query string) statementKind {
	words := keywords(query)
	if len(words) == 0 {
		return stmtExec
	}

	base := words[0].depth
	var top []string
	for _, w := range words {
		if w.depth <= base {
			top = append(top, w.text)
		}
	}

	verb := top[0]
	if verb == "WITH" {
		verb = ""
		for _, w := range top[1:] {
			if _, ok := cteBodies[w]; ok {
				verb = w
				break
			}
		}
		if verb == "" {
			verb = "SELECT"
		}
	}

	switch {
	case verb == "CALL":
		return stmtMutatingQuery
	case verb == "SELECT":
		if contains(top, "INTO") {
			return stmtExec
		}
		return stmtQuery
	case isReadKeyword(verb):
		return stmtQuery
	case contains(top, "RETURNING"):
		return stmtMutatingQuery
	}
	return stmtExec
}

func isReadKeyword(w string) bool {
	_, ok := readKeywords[w]
	return ok
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

// keywords returns the upper-cased identifiers of query with their parenthesis
// depth. Comments, string literals and quoted identifiers are skipped.
func keywords(query string) []word {
	var (
		words []word
		depth int
	)
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '-' && i+1 < len(query) && query[i+1] == '-', c == '#':
			i = skipPast(query, i, "\n")
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			i = skipPast(query, i+2, "*/")
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(query, i)
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(query) && isIdentPart(query[j]) {
				j++
			}
			words = append(words, word{text: strings.ToUpper(query[i:j]), depth: depth})
			i = j
		case isIdentPart(c):
			// numbers and the tails of @variables and $n placeholders
			j := i + 1
			for j < len(query) && isIdentPart(query[j]) {
				j++
			}
			i = j
		default:
			i++
		}
	}
	return words
}

// skipPast returns the index just after the next end at or after from, or
// len(s) when there is none.
func skipPast(s string, from int, end string) int {
	j := strings.Index(s[from:], end)
	if j < 0 {
		return len(s)
	}
	return from + j + len(end)
}

// skipQuoted returns the index just after the literal opening at s[i].
// Doubled quotes and backslash escapes stay inside the literal.
func skipQuoted(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			if j+1 < len(s) && s[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '$' || c == '@'
}
