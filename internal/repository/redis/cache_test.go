package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsDoc struct {
	Tickets int    `json:"tickets"`
	Label   string `json:"label"`
}

func TestGetOrSetJSON_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)
	ctx := context.Background()
	key := KeyDashboardStats("revenue")
	want := statsDoc{Tickets: 3, Label: "today"}
	b, _ := json.Marshal(want)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(b), time.Minute).SetVal("OK")

	calls := 0
	got, err := GetOrSetJSON(ctx, cache, key, time.Minute, func(context.Context) (statsDoc, error) {
		calls++
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSON_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)
	key := KeyDashboardStats("count")

	mock.ExpectGet(key).SetVal(`{"tickets":9,"label":"cached"}`)

	got, err := GetOrSetJSON(context.Background(), cache, key, time.Minute, func(context.Context) (statsDoc, error) {
		t.Fatal("loader must not run on a hit")
		return statsDoc{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, statsDoc{Tickets: 9, Label: "cached"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSON_CacheDownStillLoads(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)
	key := KeyDashboardStats("revenue")
	want := statsDoc{Tickets: 1}
	b, _ := json.Marshal(want)

	mock.ExpectGet(key).SetErr(errors.New("connection reset"))
	mock.ExpectGet(key).SetErr(errors.New("connection reset"))
	mock.ExpectSet(key, string(b), time.Minute).SetErr(errors.New("connection reset"))

	got, err := GetOrSetJSON(context.Background(), cache, key, time.Minute, func(context.Context) (statsDoc, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetOrSetJSON_LoaderError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)
	key := KeyDashboardStats("revenue")
	boom := errors.New("db down")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()

	_, err := GetOrSetJSON(context.Background(), cache, key, time.Minute, func(context.Context) (statsDoc, error) {
		return statsDoc{}, boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateStats(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)

	mock.ExpectDel(KeyDashboardStats("revenue"), KeyDashboardStats("count")).SetVal(2)

	require.NoError(t, cache.InvalidateStats(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
