package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\% off\_x%`, ContainsPattern("50% off_x"))
}

func TestWhereBuildsPlaceholders(t *testing.T) {
	var w Where
	assert.Equal(t, "", w.SQL())
	w.Add("(name ILIKE %s OR sku ILIKE %s)", "%a%")
	w.Add("category_id = %s", int64(3))
	assert.Equal(t, "WHERE (name ILIKE $1 OR sku ILIKE $1) AND category_id = $2", w.SQL())
	assert.Equal(t, []interface{}{"%a%", int64(3)}, w.Args())
	assert.Equal(t, "$3", w.Next(1))
}

func TestWhereAddArgsConsumesInOrder(t *testing.T) {
	var w Where
	w.Add("customer_id = %s", int64(7))
	w.AddArgs("(CASE WHEN due < %s THEN 'OVERDUE' END) = %s", "2024-03-10", "OVERDUE")
	assert.Equal(t, "WHERE customer_id = $1 AND (CASE WHEN due < $2 THEN 'OVERDUE' END) = $3", w.SQL())
	assert.Len(t, w.Args(), 3)
}
