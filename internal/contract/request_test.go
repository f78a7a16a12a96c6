package contract

import (
	"errors"
	"testing"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewReflowRequest_SetsDefaults(t *testing.T) {
	req := NewReflowRequest(domain.TriggerActuals)

	assert.Equal(t, domain.TriggerActuals, req.Trigger)
	assert.False(t, req.FullRecompute)
	assert.False(t, req.DryRun)
	assert.Nil(t, req.Now)
	assert.Empty(t, req.Baseline)
}

func TestNewReflowRequest_RecomputeIsFull(t *testing.T) {
	req := NewReflowRequest(domain.TriggerRecompute)
	assert.True(t, req.FullRecompute)
}

func TestReflowError(t *testing.T) {
	cause := errors.New("version moved")
	err := &ReflowError{Code: ReflowErrConcurrentConflict, Message: "retry", Err: cause}

	assert.Equal(t, "CONCURRENT_CONFLICT: retry", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, err.Retryable())
	assert.False(t, (&ReflowError{Code: ReflowErrCycleDetected}).Retryable())
}

func TestValidateResponse_OK(t *testing.T) {
	assert.True(t, (&ValidateResponse{}).OK())
	assert.False(t, (&ValidateResponse{Structural: []string{"bad"}}).OK())
	assert.False(t, (&ValidateResponse{Cycles: []domain.Collision{{Kind: domain.CollisionDependencyCycle}}}).OK())
}
