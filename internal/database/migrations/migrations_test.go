package migrations

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_ExecutesEveryStatement(t *testing.T) {
	stmts, err := Statements()
	require.NoError(t, err)
	require.NotEmpty(t, stmts)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range stmts {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Apply(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatements_OnePendingCounterOfferIndex(t *testing.T) {
	stmts, err := Statements()
	require.NoError(t, err)

	found := false
	for _, s := range stmts {
		assert.NotContains(t, s, ";")
		if strings.Contains(s, "counter_offers_one_pending_idx") {
			found = true
			assert.Contains(t, s, "WHERE status = 'PENDING'")
		}
	}
	assert.True(t, found)
}
