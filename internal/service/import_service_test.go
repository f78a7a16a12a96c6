package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/importer"
	"github.com/macho715/tr-dash/internal/repository"
)

func strp(s string) *string { return &s }

func voyageSchema() *importer.SnapshotSchema {
	return &importer.SnapshotSchema{
		Epoch:     "2026-03-01T00:00:00Z",
		Resources: []importer.ResourceImport{{ID: "crane", Capacity: 1}},
		Locations: []importer.GroupImport{{ID: "BAY-A", Exclusive: true}},
		Activities: []importer.ActivityImport{
			{ID: "LOAD", LocationID: "BAY-A", PlanStart: strp("2026-03-01T06:00:00Z"), DurationMin: 120,
				Resources: []importer.AssignmentImport{{ResourceID: "crane"}}},
			{ID: "SAIL", PlanStart: strp("2026-03-01T08:00:00Z"), DurationMin: 600,
				Dependencies: []importer.DependencyImport{{Predecessor: "LOAD"}}},
		},
	}
}

func TestImport_ReplacesSnapshot(t *testing.T) {
	stores(t, func(t *testing.T, store repository.Store) {
		seed(t, store, chain())
		ctx := context.Background()

		res, err := NewImportService(store).ImportSchema(ctx, voyageSchema())
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Version)
		assert.Equal(t, 2, res.Activities)
		assert.Equal(t, 1, res.Resources)
		assert.Equal(t, 1, res.Dependencies)
		assert.Equal(t, 1, res.Groups)
		assert.Equal(t, 3, res.ReplacedCount)
		assert.Empty(t, res.Cycles)

		snap, err := store.Repos().Schedule.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"LOAD", "SAIL"}, snap.ActivityIDs())
		assert.Equal(t, domain.StatePlanned, snap.Activities["SAIL"].State)
	})
}

func TestImport_InvalidSchemaLeavesStoreUntouched(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, chain())
	schema := voyageSchema()
	schema.Activities[1].Dependencies[0].Predecessor = "GHOST"
	schema.Activities[0].DurationMin = -5

	_, err := NewImportService(store).ImportSchema(context.Background(), schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHOST")
	assert.Contains(t, err.Error(), "duration_min")

	v, err := store.Repos().Schedule.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestImport_ReportsCycles(t *testing.T) {
	store := repository.NewMemoryStore()
	schema := voyageSchema()
	schema.Activities[0].Dependencies = []importer.DependencyImport{{Predecessor: "SAIL"}}

	res, err := NewImportService(store).ImportSchema(context.Background(), schema)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version)
	require.Len(t, res.Cycles, 1)
	assert.ElementsMatch(t, []string{"LOAD", "SAIL"}, res.Cycles[0].ActivityIDs)
}

func TestImportFile_ThenExport(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	data, err := json.Marshal(voyageSchema())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "voyage.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = NewImportService(store).ImportFile(ctx, path)
	require.NoError(t, err)

	out, err := NewExportService(store).Export(ctx)
	require.NoError(t, err)
	require.Len(t, out.Activities, 2)
	assert.Equal(t, "LOAD", out.Activities[0].ID)
	assert.Equal(t, "2026-03-01T06:00:00Z", *out.Activities[0].PlanStart)
	assert.Equal(t, "LOAD", out.Activities[1].Dependencies[0].Predecessor)

	_, err = NewImportService(store).ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
