// Package sorting parses caller-supplied orderBy values against an explicit
// allow-list, so a raw field name never reaches the storage layer.
package sorting

import (
	"fmt"
	"strings"

	"github.com/xenking/crm/internal/domain/failure"
)

// Sort is a parsed ordering over an enumerated field F.
type Sort[F ~string] struct {
	Field F
	Desc  bool
}

// Parse resolves raw against allowed. A leading "-" selects descending
// order. Lookup is case-insensitive and ignores underscores, so "total_amount"
// and "totalAmount" name the same field. An empty raw yields def.
func Parse[F ~string](raw string, allowed map[string]F, def Sort[F]) (Sort[F], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}

	var s Sort[F]
	key := raw
	if strings.HasPrefix(key, "-") {
		s.Desc = true
		key = key[1:]
	}

	f, ok := allowed[normalize(key)]
	if !ok {
		return def, failure.Invalid(failure.CodeInvalidOrderBy,
			fmt.Sprintf("Cannot order by %q.", raw))
	}
	s.Field = f
	return s, nil
}

// Keys builds an allow-list from field values, registering each under its
// normalized name.
func Keys[F ~string](fields ...F) map[string]F {
	m := make(map[string]F, len(fields))
	for _, f := range fields {
		m[normalize(string(f))] = f
	}
	return m
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}
