package service

import (
	"context"
	"fmt"
	"time"

	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/graph"
	"github.com/macho715/tr-dash/internal/importer"
	"github.com/macho715/tr-dash/internal/repository"
)

type importService struct {
	store repository.Store
	rt    runtime
}

func NewImportService(store repository.Store, opts ...Option) ImportService {
	return &importService{store: store, rt: newRuntime(opts)}
}

func (s *importService) ImportFile(ctx context.Context, path string) (*contract.ImportResult, error) {
	schema, err := importer.LoadSnapshotSchema(path)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.ImportSchema(ctx, schema)
}

// ImportSchema replaces the whole live snapshot with the file contents in one
// version step. Cycles do not block the import; they are returned so the
// caller can fix them before the next reflow.
func (s *importService) ImportSchema(ctx context.Context, schema *importer.SnapshotSchema) (res *contract.ImportResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"activities": len(schema.Activities)}
	defer func() {
		s.rt.observe(ctx, "import", startedAt, err, fields)
	}()

	if errs := importer.ValidateSnapshotSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}
	snap, err := importer.Convert(schema)
	if err != nil {
		return nil, fmt.Errorf("converting import schema: %w", err)
	}
	g, err := graph.Build(snap)
	if err != nil {
		return nil, err
	}

	res = &contract.ImportResult{
		Activities: len(snap.Activities),
		Resources:  len(snap.Resources),
		Groups:     len(snap.Trips) + len(snap.TransportUnits) + len(snap.Locations),
		Cycles:     graph.Validate(g),
	}
	for _, a := range snap.Activities {
		res.Dependencies += len(a.Dependencies)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		current, err := r.Schedule.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}
		v, err := r.Schedule.Replace(ctx, current.Version, snap)
		if err != nil {
			return err
		}
		res.Version = v
		res.ReplacedCount = len(current.Activities)
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["version"] = res.Version
	fields["cycles"] = len(res.Cycles)
	return res, nil
}

type exportService struct {
	store repository.Store
}

func NewExportService(store repository.Store) ExportService {
	return &exportService{store: store}
}

// Export renders the committed snapshot in the import format.
func (s *exportService) Export(ctx context.Context) (*importer.SnapshotSchema, error) {
	snap, err := s.store.Repos().Schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return importer.FromSnapshot(snap), nil
}
