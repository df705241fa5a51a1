package store

import (
	"fmt"
	"strings"

	"gridbrief/internal/core"
)

// filterConditions renders SearchFilters into SQL conditions on the given
// column prefix (e.g. "c." for chunks). Placeholders start at firstArg.
// Country and topic filters are array overlaps; dates are inclusive bounds.
func filterConditions(f core.SearchFilters, prefix string, firstArg int) ([]string, []any) {
	var conds []string
	var args []any
	arg := firstArg

	if len(f.Countries) > 0 {
		conds = append(conds, fmt.Sprintf("%scountry_codes && $%d", prefix, arg))
		args = append(args, f.Countries)
		arg++
	}
	if len(f.Topics) > 0 {
		conds = append(conds, fmt.Sprintf("%stopic_tags && $%d", prefix, arg))
		args = append(args, f.Topics)
		arg++
	}
	if f.DateFrom != nil {
		conds = append(conds, fmt.Sprintf("%spublished_at >= $%d", prefix, arg))
		args = append(args, *f.DateFrom)
		arg++
	}
	if f.DateTo != nil {
		conds = append(conds, fmt.Sprintf("%spublished_at <= $%d", prefix, arg))
		args = append(args, *f.DateTo)
		arg++
	}
	return conds, args
}

// escapeLike escapes LIKE wildcards so a phrase matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
