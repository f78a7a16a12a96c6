package contract

import (
	"github.com/macho715/tr-dash/internal/app"
	"github.com/macho715/tr-dash/internal/domain"
)

const (
	BaselineNone   = app.BaselineNone
	BaselineLatest = app.BaselineLatest
)

type ReflowRequest = app.ReflowRequest

func NewReflowRequest(trigger domain.TriggerKind) ReflowRequest {
	return app.NewReflowRequest(trigger)
}

type ReflowResponse = app.ReflowResponse

type ReflowErrorCode = app.ReflowErrorCode

const (
	ReflowErrInvalidTrigger     ReflowErrorCode = app.ReflowErrInvalidTrigger
	ReflowErrUnknownActivity    ReflowErrorCode = app.ReflowErrUnknownActivity
	ReflowErrCycleDetected      ReflowErrorCode = app.ReflowErrCycleDetected
	ReflowErrMalformedInput     ReflowErrorCode = app.ReflowErrMalformedInput
	ReflowErrConcurrentConflict ReflowErrorCode = app.ReflowErrConcurrentConflict
	ReflowErrCanceled           ReflowErrorCode = app.ReflowErrCanceled
	ReflowErrInternal           ReflowErrorCode = app.ReflowErrInternal
)

type ReflowError = app.ReflowError
