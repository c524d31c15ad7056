package service

import (
	"fmt"
	"net/http"
	"testing"

	"pawcademy/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeSuccess(t *testing.T) {
	resp := envelope(map[string]any{"ok": true}, nil)

	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Payload)
}

func TestEnvelopeErrorMapping(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		errorType string
	}{
		{fmt.Errorf("%w: bad input", model.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: missing", model.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: contended write", model.ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("%w: bad catalog", model.ErrConfiguration), http.StatusInternalServerError, "CONFIGURATION_ERROR"},
		{fmt.Errorf("%w: mongo down", model.ErrUnavailable), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{fmt.Errorf("something else"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		resp := envelope(nil, tc.err)
		assert.False(t, resp.Success, tc.errorType)
		assert.Equal(t, tc.status, resp.Status, tc.errorType)
		require.NotNil(t, resp.Error, tc.errorType)
		assert.Equal(t, tc.errorType, resp.Error.ErrorType)
		assert.Equal(t, tc.status, resp.Error.Code)
	}
}
