// internal/grid/fingerprint.go
package grid

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/solatis/datagrid/internal/types"
)

// FingerprintSeparator joins fingerprint parts.
const FingerprintSeparator = "#"

// Parameters copied into the fingerprint when present, so identical grid
// parameters on different pages do not share an entry.
const (
	ParamURL         = "URL"
	ParamQueryString = "QUERY_STRING"
)

// Fingerprint derives the cache key of a request:
//
//	prefix#[URL]#[QUERY_STRING]#typeName#col@verb@operand@keyword...#col@dir...#page@size
//
// URL and QUERY_STRING parts are present only when the parameters carry
// them. Equal settings always produce equal keys. Separators and
// backslashes inside request-supplied text are escaped with a backslash, so
// different requests never share a key.
func Fingerprint(prefix, typeName string, s *types.ParameterSettings) string {
	parts := []string{prefix}
	if url, ok := s.Parameters[ParamURL]; ok {
		parts = append(parts, escapeKeyPart(url))
	}
	if qs, ok := s.Parameters[ParamQueryString]; ok {
		parts = append(parts, escapeKeyPart(qs))
	}
	parts = append(parts, typeName)
	for _, f := range s.Filters {
		parts = append(parts, strings.Join([]string{
			escapeKeyPart(f.Column), escapeKeyPart(f.Verb), f.Operand.String(), escapeKeyPart(f.Keyword),
		}, "@"))
	}
	for _, o := range s.Sorters {
		parts = append(parts, escapeKeyPart(o.Column)+"@"+o.Direction.String())
	}
	parts = append(parts, strconv.Itoa(s.PageNumber)+"@"+strconv.Itoa(s.PageSize))
	return strings.Join(parts, FingerprintSeparator)
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, FingerprintSeparator, `\`+FingerprintSeparator, "@", `\@`)

func escapeKeyPart(s string) string {
	return keyEscaper.Replace(s)
}

// typePattern matches every fingerprint built with prefix for typeName,
// whatever URL and QUERY_STRING parts sit in between.
func typePattern(prefix, typeName string) *regexp.Regexp {
	sep := regexp.QuoteMeta(FingerprintSeparator)
	return regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + sep + "(.*" + sep + ")?" + regexp.QuoteMeta(typeName) + sep)
}
