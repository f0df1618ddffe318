//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"idcard/internal/wizard/models"
	"idcard/internal/wizard/store"
	"idcard/pkg/platform/sentinel"
	"idcard/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	kv    *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.kv = store.NewRedis(s.redis.Client, store.WithTTL(time.Minute))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestDraftSurvivesReload() {
	ctx := context.Background()
	sessionID := uuid.NewString()

	draft := models.Draft{"staffName": "John Doe", "staffNo": "S1234", "dataToChange": []string{"Name"}}
	s.Require().NoError(store.NewSession(s.kv, sessionID).SaveDraft(ctx, models.RoleStaff, "jdoe@nitt.edu", draft))

	// A new Session value over the same scope stands in for a page reload.
	got, err := store.NewSession(s.kv, sessionID).LoadDraft(ctx, models.RoleStaff, "jdoe@nitt.edu")
	s.Require().NoError(err)
	s.Equal("S1234", got.Text("staffNo"))
	s.Equal([]string{"Name"}, got.Set("dataToChange"))
}

func (s *RedisStoreSuite) TestClearDropsScope() {
	ctx := context.Background()
	sessionID := uuid.NewString()
	s.Require().NoError(s.kv.Put(ctx, sessionID, "role", []byte("staff")))

	ttl, err := s.redis.Client.TTL(ctx, "idcard:session:"+sessionID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.Require().NoError(s.kv.Clear(ctx, sessionID))
	_, err = s.kv.Get(ctx, sessionID, "role")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
