package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLockClient struct {
	mock.Mock
}

func (m *mockLockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.BoolCmd)
}

func (m *mockLockClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	ret := m.Called(ctx, script, keys, args)
	return ret.Get(0).(*redis.Cmd)
}

func (m *mockLockClient) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	ret := m.Called(ctx, sha1, keys, args)
	return ret.Get(0).(*redis.Cmd)
}

func (m *mockLockClient) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	ret := m.Called(ctx, script, keys, args)
	return ret.Get(0).(*redis.Cmd)
}

func (m *mockLockClient) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	ret := m.Called(ctx, sha1, keys, args)
	return ret.Get(0).(*redis.Cmd)
}

func (m *mockLockClient) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	ret := m.Called(ctx, hashes)
	return ret.Get(0).(*redis.BoolSliceCmd)
}

func (m *mockLockClient) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	ret := m.Called(ctx, script)
	return ret.Get(0).(*redis.StringCmd)
}

func TestRedisLocker_ReleaseChecksToken(t *testing.T) {
	ctx := context.Background()
	rdb := new(mockLockClient)
	locker := &redisLocker{rdb: rdb}

	rdb.On("SetNX", mock.Anything, "checkout:k", mock.AnythingOfType("string"), time.Minute).
		Return(redis.NewBoolResult(true, nil)).Once()

	token, ok, err := locker.Acquire(ctx, "checkout:k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)
	assert.Equal(t, token, rdb.Calls[0].Arguments.Get(2), "the stored value is the returned token")

	rdb.On("EvalSha", mock.Anything, releaseScript.Hash(), []string{"checkout:k"}, []interface{}{token}).
		Return(redis.NewCmdResult(int64(1), nil)).Once()

	require.NoError(t, locker.Release(ctx, "checkout:k", token))
	rdb.AssertExpectations(t)
}

func TestRedisLocker_Acquire(t *testing.T) {
	tests := []struct {
		name    string
		result  *redis.BoolCmd
		wantOK  bool
		wantErr bool
	}{
		{name: "granted", result: redis.NewBoolResult(true, nil), wantOK: true},
		{name: "held elsewhere", result: redis.NewBoolResult(false, nil)},
		{name: "backend down", result: redis.NewBoolResult(false, errors.New("connection refused")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := new(mockLockClient)
			rdb.On("SetNX", mock.Anything, "k", mock.Anything, time.Second).Return(tt.result)
			locker := &redisLocker{rdb: rdb}

			token, ok, err := locker.Acquire(context.Background(), "k", time.Second)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantOK, token != "")
		})
	}
}

func TestRedisLocker_ReleaseOfExpiredLockIsNoop(t *testing.T) {
	rdb := new(mockLockClient)
	// another holder owns the key now, so the script deletes nothing
	rdb.On("EvalSha", mock.Anything, releaseScript.Hash(), []string{"k"}, []interface{}{"stale"}).
		Return(redis.NewCmdResult(int64(0), nil)).Once()
	locker := &redisLocker{rdb: rdb}

	assert.NoError(t, locker.Release(context.Background(), "k", "stale"))
	rdb.AssertExpectations(t)
}
