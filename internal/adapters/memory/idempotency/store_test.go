package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
)

func TestStore_PutThenGet_CopiesBody(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/registration",
		BodyHash: "abc123",
	}
	body := []byte(`{"registered":true}`)
	require.NoError(t, s.Put(context.Background(), fp, idempotency.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        body,
		CreatedAt:   time.Unix(123, 0).UTC(),
	}))
	body[0] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"registered":true}`, string(got.Body))
}

func TestStore_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{Key: "k1", Subject: "sub-1", Method: "POST", Route: "/registration"}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, claimed, err := s.Claim(context.Background(), fp, idempotency.Record{Body: []byte{byte(i)}})
			if err == nil && claimed {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStore()
	require.ErrorIs(t, s.Put(ctx, idempotency.Fingerprint{Key: "k"}, idempotency.Record{}), context.Canceled)
	_, _, err := s.Claim(ctx, idempotency.Fingerprint{Key: "k"}, idempotency.Record{})
	require.ErrorIs(t, err, context.Canceled)
}
