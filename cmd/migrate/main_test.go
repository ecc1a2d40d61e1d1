package main

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/diceengine/internal/testutil"
)

func TestMigrateUpAndDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in -short mode")
	}
	pc := testutil.NewPostgresContainer(t)

	m, err := newMigrator(pc.DSN())
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, apply(m, "up", 0))
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	var exists bool
	require.NoError(t, pc.RawPool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'roll_history')`).Scan(&exists))
	assert.True(t, exists)

	assert.True(t, errors.Is(apply(m, "up", 0), migrate.ErrNoChange))

	require.NoError(t, apply(m, "down", 1))
	_, _, err = m.Version()
	assert.ErrorIs(t, err, migrate.ErrNilVersion)
}

func TestApply_InvalidDirection(t *testing.T) {
	err := apply(nil, "sideways", 0)
	assert.ErrorContains(t, err, `invalid direction "sideways"`)
}
