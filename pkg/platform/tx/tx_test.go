package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	t.Run("commits on success and exposes the transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := Run(ctx, db, func(ctx context.Context) error {
			_, ok := From(ctx)
			assert.True(t, ok)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		boom := errors.New("boom")

		err := Run(ctx, db, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("joins an outer transaction", func(t *testing.T) {
		mock.ExpectBegin()
		outer, err := db.Begin()
		require.NoError(t, err)

		err = Run(WithTx(ctx, outer), db, func(ctx context.Context) error {
			inner, _ := From(ctx)
			assert.Same(t, outer, inner)
			return nil
		})
		require.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxNil(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
	_, ok := From(ctx)
	assert.False(t, ok)
}
