package app

import (
	"context"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/importer"
)

type ReflowUseCase interface {
	Reflow(ctx context.Context, req ReflowRequest) (*ReflowResponse, error)
}

type ValidateUseCase interface {
	Validate(ctx context.Context) (*ValidateResponse, error)
}

type TimingUseCase interface {
	Compute(ctx context.Context, req TimingRequest) (*TimingResponse, error)
}

type CollisionUseCase interface {
	Detect(ctx context.Context, req CollisionRequest) (*CollisionResponse, error)
}

type CaptureBaselineUseCase interface {
	Capture(ctx context.Context, name string) (*domain.Baseline, error)
}

type TransitionUseCase interface {
	Transition(ctx context.Context, req TransitionRequest) (*TransitionResponse, error)
}

type ImportScheduleUseCase interface {
	ImportFile(ctx context.Context, path string) (*ImportResult, error)
	ImportSchema(ctx context.Context, schema *importer.SnapshotSchema) (*ImportResult, error)
}
