package contract

import "github.com/macho715/tr-dash/internal/app"

type ValidateResponse = app.ValidateResponse

type TimingRequest = app.TimingRequest

type ActivityTiming = app.ActivityTiming

type TimingResponse = app.TimingResponse

type CollisionRequest = app.CollisionRequest

type CollisionResponse = app.CollisionResponse

type TransitionRequest = app.TransitionRequest

type TransitionResponse = app.TransitionResponse

type ImportResult = app.ImportResult
