package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/project"
)

func TestReplaceProjectsIsFullReplacement(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	require.NoError(t, db.ReplaceProjects(ctx, project.Samples()))
	n, err := db.CountProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(project.Samples()), n)

	next := []project.Project{
		{ID: "z1", Name: "두 번째", Category: project.CategoryFishery, IsActive: true},
		{ID: "a1", Name: "첫 번째", Category: project.CategoryAgriculture},
	}
	require.NoError(t, db.ReplaceProjects(ctx, next))

	got, err := db.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got, "import order is preserved and old rows are gone")
}

func TestReplaceProjectsRoundTripsSamples(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	require.NoError(t, db.ReplaceProjects(ctx, project.Samples()))
	got, err := db.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, project.Samples(), got)
}

func TestReplaceProjectsRejectsInvalidAndKeepsPrior(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceProjects(ctx, project.Samples()))

	err := db.ReplaceProjects(ctx, []project.Project{{ID: "x1", Name: "ok"}, {ID: "", Name: "no id"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	n, err := db.CountProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(project.Samples()), n, "failed import must roll back")
}

func TestReplaceProjectsDuplicateIDLaterWins(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	require.NoError(t, db.ReplaceProjects(ctx, []project.Project{
		{ID: "dup", Name: "old"},
		{ID: "dup", Name: "new"},
	}))
	p, err := db.GetProject(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "new", p.Name)
}

func TestGetProject(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceProjects(ctx, project.Samples()))

	p, err := db.GetProject(ctx, "agr001")
	require.NoError(t, err)
	assert.Equal(t, "agr001", p.ID)
	assert.Equal(t, project.CategoryAgriculture, p.Category)

	_, err = db.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	seeded, err := db.SeedIfEmpty(ctx, project.Samples())
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = db.SeedIfEmpty(ctx, []project.Project{{ID: "other", Name: "x"}})
	require.NoError(t, err)
	assert.False(t, seeded)

	_, err = db.GetProject(ctx, "other")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
