package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestNewPool_RejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := NewPool(context.Background(), "", PoolOptions{})
	require.Error(t, err)
}

func TestNewPool_RejectsMalformedDSN(t *testing.T) {
	t.Parallel()

	_, err := NewPool(context.Background(), "postgres://%zz", PoolOptions{})
	require.Error(t, err)
}

func TestAsPgError(t *testing.T) {
	t.Parallel()

	pe := &pgconn.PgError{Code: UniqueViolationCode, ConstraintName: "profiles_subject_unique"}
	wrapped := fmt.Errorf("insert: %w", pe)

	got, ok := AsPgError(wrapped)
	require.True(t, ok)
	require.Equal(t, UniqueViolationCode, got.Code)

	_, ok = AsPgError(errors.New("plain"))
	require.False(t, ok)
}
