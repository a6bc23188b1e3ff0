package database

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so user input matches literally when the
// query declares ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ContainsPattern returns a lower-cased, escaped "%s%" pattern.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(strings.ToLower(s)) + "%"
}
