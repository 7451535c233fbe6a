package sqlitevec

import (
	"fmt"
	"strings"

	"github.com/spetr/codeindexer/pkg/provider"
)

// filterSQL compiles a provider.Filter into a SQL WHERE fragment (without
// the leading "WHERE") plus its positional arguments, matching payload
// keys via json_extract against the points table's payload_json column.
func filterSQL(f *provider.Filter) (string, []any) {
	if f.IsEmpty() {
		return "", nil
	}

	var clauses []string
	var args []any

	for _, c := range f.Must {
		clause, arg := conditionSQL(c)
		clauses = append(clauses, clause)
		args = append(args, arg)
	}
	for _, c := range f.MustNot {
		clause, arg := conditionSQL(c)
		clauses = append(clauses, "NOT ("+clause+")")
		args = append(args, arg)
	}
	if len(f.Should) > 0 {
		var orParts []string
		for _, c := range f.Should {
			clause, arg := conditionSQL(c)
			orParts = append(orParts, clause)
			args = append(args, arg)
		}
		clauses = append(clauses, "("+strings.Join(orParts, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), args
}

func conditionSQL(c provider.Condition) (string, any) {
	col := fmt.Sprintf("json_extract(payload_json, '$.%s')", c.Key)
	if c.Match.Text != "" {
		return col + " LIKE ?", "%" + c.Match.Text + "%"
	}
	return col + " = ?", c.Match.Value
}
