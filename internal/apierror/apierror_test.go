/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	details := "Some internal error details"
	apiErr := apierror.NewAPIError(apierror.ErrInternalServer, "Something went wrong", details)

	assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
	assert.Equal(t, "Something went wrong", apiErr.Message)
	assert.Equal(t, details, apiErr.Details)
	assert.Equal(t, "INTERNAL_SERVER_ERROR: Something went wrong", apiErr.Error())
}

func TestNewValidationError(t *testing.T) {
	err := apierror.NewValidationError("deposited_amount", -5.0, "deposited_amount must not be negative")

	assert.Equal(t, apierror.ErrInvalidInput, err.Code)
	assert.Equal(t, apierror.FieldError{Field: "deposited_amount", Value: -5.0}, err.Details)
	assert.False(t, apierror.IsRetryable(err))
}

func TestCodeOf_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("upsert: %w", apierror.NewAPIError(apierror.ErrConflict, "version moved", nil))

	assert.Equal(t, apierror.ErrConflict, apierror.CodeOf(wrapped))
	assert.True(t, apierror.Is(wrapped, apierror.ErrConflict))
	assert.True(t, apierror.IsRetryable(wrapped))
	assert.Equal(t, apierror.ErrInternalServer, apierror.CodeOf(errors.New("boom")))
	assert.False(t, apierror.Is(nil, apierror.ErrInternalServer))
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "NotFound Error",
			err:      apierror.NewAPIError(apierror.ErrNotFound, "Resource not found", nil),
			expected: http.StatusNotFound,
		},
		{
			name:     "Conflict Error",
			err:      apierror.NewAPIError(apierror.ErrConflict, "Conflict occurred", nil),
			expected: http.StatusConflict,
		},
		{
			name:     "InvalidInput Error",
			err:      apierror.NewValidationError("expense_amount", "NaN", "expense_amount must be finite"),
			expected: http.StatusBadRequest,
		},
		{
			name:     "Source Unavailable",
			err:      apierror.NewAPIError(apierror.ErrSourceUnavailable, "transactions unavailable", nil),
			expected: http.StatusServiceUnavailable,
		},
		{
			name:     "InternalServerError",
			err:      apierror.NewAPIError(apierror.ErrInternalServer, "Internal server error", nil),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "Unknown Error",
			err:      errors.New("Unknown error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusCode := apierror.MapErrorToHTTPStatus(tt.err)
			assert.Equal(t, tt.expected, statusCode)
		})
	}
}
