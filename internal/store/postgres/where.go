package postgres

import (
	"strconv"
	"strings"
)

// whereBuilder collects AND-ed conditions with numbered placeholders.
// Each "?" in a condition is replaced by the next $n.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.conds = append(w.conds, strings.Replace(cond, "?", w.arg(arg), 1))
}

// arg appends a positional argument and returns its placeholder.
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
