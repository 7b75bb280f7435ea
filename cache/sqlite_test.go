/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SQLiteBackendTestSuite struct {
	suite.Suite
	path    string
	now     time.Time
	backend *SQLiteBackend
}

func TestSQLiteBackend(t *testing.T) {
	suite.Run(t, new(SQLiteBackendTestSuite))
}

func (s *SQLiteBackendTestSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "cache.db")
	s.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.backend = s.open()
}

func (s *SQLiteBackendTestSuite) TearDownTest() {
	s.Require().NoError(s.backend.Close())
}

func (s *SQLiteBackendTestSuite) open() *SQLiteBackend {
	b, err := NewSQLiteBackend(context.Background(), s.path, SQLiteBackendOpts{Clock: func() time.Time { return s.now }})
	s.Require().NoError(err)
	return b
}

func (s *SQLiteBackendTestSuite) TestRoundTripWithTTL() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Set(ctx, "k", "v", 2*time.Second))

	val, found, err := s.backend.Get(ctx, "k")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Equal("v", val)

	s.now = s.now.Add(2 * time.Second)
	_, found, err = s.backend.Get(ctx, "k")
	s.Require().NoError(err)
	s.Require().False(found)
}

func (s *SQLiteBackendTestSuite) TestOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Set(ctx, "k", "v1", time.Second))
	s.Require().NoError(s.backend.Set(ctx, "k", "v2", time.Hour))
	s.now = s.now.Add(time.Minute)

	val, found, err := s.backend.Get(ctx, "k")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Equal("v2", val)
}

func (s *SQLiteBackendTestSuite) TestRemoveExpired() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Set(ctx, "short", "1", time.Second))
	s.Require().NoError(s.backend.Set(ctx, "long", "2", time.Hour))
	s.Require().NoError(s.backend.Set(ctx, "forever", "3", 0))

	s.now = s.now.Add(time.Minute)
	n, err := s.backend.RemoveExpired(ctx)
	s.Require().NoError(err)
	s.Require().Equal(1, n)

	s.now = s.now.Add(24 * time.Hour)
	_, found, err := s.backend.Get(ctx, "forever")
	s.Require().NoError(err)
	s.Require().True(found)
}

func (s *SQLiteBackendTestSuite) TestEntriesSurviveReopen() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Set(ctx, "release:1", `{"title":"Kind of Blue"}`, time.Hour))
	s.Require().NoError(s.backend.Close())

	s.backend = s.open()
	val, found, err := s.backend.Get(ctx, "release:1")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Equal(`{"title":"Kind of Blue"}`, val)
	s.Require().NoError(s.backend.Ping(ctx))
}

func (s *SQLiteBackendTestSuite) TestClosedDatabaseFailsThroughStore() {
	ctx := context.Background()
	store := NewStore(s.backend)
	store.Set(ctx, "k", "v", time.Minute)
	s.Require().NoError(s.backend.Close())

	_, found := store.Get(ctx, "k")
	s.Require().False(found)
	s.Require().False(store.Available())

	s.backend = s.open()
}
