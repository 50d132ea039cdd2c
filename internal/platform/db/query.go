package db

import (
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE pattern matching s anywhere, with wildcards in s escaped.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Where accumulates AND-ed conditions with positional arguments.
type Where struct {
	conds []string
	args  []interface{}
}

// Add appends a condition. Each %s in cond is replaced by the placeholder of
// the argument; one argument may be referenced several times.
func (w *Where) Add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	placeholder := fmt.Sprintf("$%d", len(w.args))
	w.conds = append(w.conds, strings.ReplaceAll(cond, "%s", placeholder))
}

// AddArgs appends a condition whose %s verbs take args in order.
func (w *Where) AddArgs(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "%s", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

// SQL renders the WHERE clause, or an empty string without conditions.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the accumulated arguments.
func (w *Where) Args() []interface{} {
	return w.args
}

// Next returns the placeholder for an argument appended after the conditions.
func (w *Where) Next(offset int) string {
	return fmt.Sprintf("$%d", len(w.args)+offset)
}
