package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepOrder(t *testing.T) {
	steps := Steps()
	require.Len(t, steps, 12)
	assert.Equal(t, StepParseMessage, steps[0])
	assert.Equal(t, StepComplete, steps[len(steps)-1])

	visited := []Step{steps[0]}
	for s := steps[0]; ; {
		next, ok := s.Next()
		if !ok {
			break
		}
		visited = append(visited, next)
		s = next
	}
	assert.Equal(t, steps, visited)
}

func TestCriticalSteps(t *testing.T) {
	critical := []Step{
		StepParseMessage, StepExtractCompany, StepFindCustomer,
		StepMatchProducts, StepCalculatePricing, StepCreateOffer,
	}
	for _, s := range critical {
		assert.True(t, s.Critical(), "%s should be critical", s)
	}
	for _, s := range []Step{StepFindSalesperson, StepExtractProducts, StepBuildOffer, StepVerifyOffer, StepSendConfirmation, StepComplete} {
		assert.False(t, s.Critical(), "%s should not be critical", s)
	}
}

func TestRetriableSteps(t *testing.T) {
	for _, s := range []Step{StepFindCustomer, StepFindSalesperson, StepMatchProducts, StepCreateOffer} {
		assert.True(t, s.Retriable(), "%s should be retriable", s)
	}
	for _, s := range []Step{StepParseMessage, StepCalculatePricing, StepVerifyOffer, StepComplete} {
		assert.False(t, s.Retriable(), "%s should not be retriable", s)
	}
}

func TestNextOnTerminalStep(t *testing.T) {
	_, ok := StepComplete.Next()
	assert.False(t, ok)

	_, ok = Step("bogus").Next()
	assert.False(t, ok)
}
