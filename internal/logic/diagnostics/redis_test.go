package diagnostics

import (
	"context"
	"testing"
	"time"

	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*RedisFailedTxStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisFailedTxStore(rdb, ttl), mr
}

func sampleRecord() *core.FailedTransactionRecord {
	req := core.RelayRequest{
		Instructions: []core.RawInstruction{{
			ProgramID: types.Pubkey{1},
			Accounts:  []core.AccountRef{{Address: types.Pubkey{2}, IsWritable: true}},
			Data:      []byte{17},
		}},
		RecentBlockhash: types.Hash{3},
		Retry:           true,
	}
	return &core.FailedTransactionRecord{
		ContentHash: core.ContentHash(req),
		Payload:     req,
		Signature:   "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		FeePayer:    types.Pubkey{4},
		Attempts:    3,
		Error:       "SubmissionError: submission failed after 3 attempt(s)",
		RecordedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRecordAndGet(t *testing.T) {
	store, mr := newStore(t, 0)
	ctx := context.Background()
	rec := sampleRecord()

	require.NoError(t, store.Record(ctx, rec))
	assert.True(t, mr.Exists("relay:failed_tx:"+rec.ContentHash.String()))
	assert.Equal(t, DefaultTTL, mr.TTL("relay:failed_tx:"+rec.ContentHash.String()))

	got, err := store.Get(ctx, rec.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, rec.ContentHash, got.ContentHash)
	assert.Equal(t, rec.Payload, got.Payload)
	assert.Equal(t, rec.Signature, got.Signature)
	assert.Equal(t, rec.FeePayer, got.FeePayer)
	assert.Equal(t, rec.Attempts, got.Attempts)
	assert.Equal(t, rec.Error, got.Error)
	assert.True(t, rec.RecordedAt.Equal(got.RecordedAt))
}

func TestRecordExpires(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()
	rec := sampleRecord()
	require.NoError(t, store.Record(ctx, rec))

	ttl, err := store.TTL(ctx, rec.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	mr.FastForward(time.Hour + time.Second)
	_, err = store.Get(ctx, rec.ContentHash)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = store.TTL(ctx, rec.ContentHash)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordOverwritesSameHash(t *testing.T) {
	store, _ := newStore(t, 0)
	ctx := context.Background()
	rec := sampleRecord()
	require.NoError(t, store.Record(ctx, rec))

	again := sampleRecord()
	again.Attempts = 5
	require.NoError(t, store.Record(ctx, again))

	got, err := store.Get(ctx, rec.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Attempts)
}

func TestRecord_RedisDown(t *testing.T) {
	store, mr := newStore(t, 0)
	mr.Close()
	err := store.Record(context.Background(), sampleRecord())
	assert.Error(t, err)
}
