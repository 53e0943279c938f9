package pipeline

import (
	"regexp"
	"strings"

	"github.com/pgpipeviz/pgpipeviz/sqlparse"
)

// castPattern matches the `::typename` decorations EXPLAIN appends to
// literals, together with the `)` or space that follows. Kept as a
// single regex rather than a parser; condition text is display-only.
var castPattern = regexp.MustCompile(`::[^) ]*[) ]`)

// operatorReplacer rewrites Postgres operator spellings to the tokens
// a reader expects. "!~~" must come before "~~".
var operatorReplacer = strings.NewReplacer(
	"!~~", "NOT LIKE",
	"~~", "LIKE",
	"<>", "!=",
)

// Normalize rewrites a flattened sequence in place: sort/group key
// elements lose their table qualifiers and gain output aliases, and
// filter conditions lose cast decorations. Running it twice is the
// same as running it once.
func Normalize(seq StageSequence, aliases *sqlparse.AliasMap) {
	for _, stage := range seq {
		for key, elems := range stage.Keys {
			normalized := make([]string, 0, len(elems))
			for _, elem := range elems {
				elem = StripTablePrefix(elem)
				normalized = append(normalized, aliases.Substitute(elem))
			}
			stage.Attrs[key] = strings.Join(normalized, ",")
		}
		stage.Keys = nil

		if filter, ok := stage.Attrs["Filter"]; ok {
			stage.Attrs["Filter"] = NormalizeCondition(filter)
		}
	}
}

// NormalizeCondition strips type casts from a condition string and
// canonicalizes operator spellings.
func NormalizeCondition(s string) string {
	return operatorReplacer.Replace(castPattern.ReplaceAllString(s, ""))
}

// StripTablePrefix removes a qualifying table prefix from a column
// reference: "customer.c_custkey" becomes "c_custkey" and
// "count(customer.c_acct_bal)" becomes "count(c_acct_bal)". This is a
// heuristic keyed on the first "." and the last "(" before it, not a
// qualified-identifier parser.
func StripTablePrefix(s string) string {
	dot := strings.Index(s, ".")
	if dot == -1 {
		return s
	}
	if bracket := strings.LastIndex(s[:dot], "("); bracket != -1 {
		return s[:bracket+1] + s[dot+1:]
	}
	return s[dot+1:]
}
