// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pgxrepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_buildQuery(t *testing.T) {
	t.Run("will sanitize identifiers and order criteria", func(t *testing.T) {
		table := NewTable(nil, "public.users")

		sql, args, err := table.buildQuery(map[string]any{"slug": "bob", "active": true})
		require.Nil(t, err)

		assert.Equal(t, `SELECT * FROM "public"."users" WHERE "active" = $1 AND "slug" = $2 LIMIT 1`, sql)
		assert.Equal(t, []any{true, "bob"}, args)
	})

	t.Run("will select configured columns", func(t *testing.T) {
		table := NewTable(nil, "users", Columns("id", "name"))

		sql, _, err := table.buildQuery(map[string]any{"id": 1})
		require.Nil(t, err)

		assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "id" = $1 LIMIT 1`, sql)
	})

	t.Run("will reject empty criteria", func(t *testing.T) {
		table := NewTable(nil, "users")

		_, _, err := table.buildQuery(nil)
		assert.Error(t, err)
	})
}
