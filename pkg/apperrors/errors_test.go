package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
		status   int
	}{
		{"validation", Validation("bad %s", "range"), ErrValidation, KindValidation, http.StatusBadRequest},
		{"not found", NotFound("conversation"), ErrNotFound, KindNotFound, http.StatusNotFound},
		{"upstream", Upstream("model call failed", errors.New("boom")), ErrUpstream, KindUpstream, http.StatusBadGateway},
		{"authorization", Unauthorized("missing token"), ErrAuthorization, KindAuthorization, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(wrapped))
			assert.Equal(t, tt.status, HTTPStatus(wrapped))
		})
	}
}

func TestUpstreamDeadlineMapsToGatewayTimeout(t *testing.T) {
	err := Upstream("model call timed out", context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInternalErrorsAreNotExposed(t *testing.T) {
	err := errors.New("pq: relation does not exist")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, "goal not found", PublicMessage(NotFound("goal")))
}

func TestKindsDoNotCrossMatch(t *testing.T) {
	err := NotFound("goal")
	assert.NotErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrUpstream)
}
