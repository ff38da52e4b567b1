package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamErrorMessageIncludesStatusAndBody(t *testing.T) {
	err := NewUpstreamError(http.StatusUnauthorized, "", `{"errors":[{"message":"Invalid access token."}]}`)
	assert.Equal(t, "Canvas API Error: 401 Unauthorized", err.Message())
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid access token.")
}

func TestFromErrorMapsUpstreamStatus(t *testing.T) {
	wrapped := fmt.Errorf("list courses: %w", NewUpstreamError(http.StatusForbidden, "Forbidden", "nope"))
	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeUpstream, appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestFromErrorMapsTransport(t *testing.T) {
	appErr := FromError(&TransportError{Op: "GET", URL: "https://canvas.test", Err: context.DeadlineExceeded})
	assert.Equal(t, CodeTransport, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}

func TestCloneKeepsIdentityForIs(t *testing.T) {
	clone := Clone(ErrValidation, "baseUrl must use https")
	assert.True(t, errors.Is(clone, ErrValidation))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.Equal(t, "baseUrl must use https", clone.Message)
}

func TestTransportLooksBlocked(t *testing.T) {
	blocked := &TransportError{Op: "GET", Err: errors.New("TypeError: Failed to fetch")}
	assert.True(t, blocked.LooksBlocked())

	refused := &TransportError{Op: "GET", Err: errors.New("dial tcp 127.0.0.1:3003: connect: connection refused")}
	assert.False(t, refused.LooksBlocked())
}

func TestPartialFetchErrorUnwraps(t *testing.T) {
	cause := NewUpstreamError(http.StatusNotFound, "", "")
	err := &PartialFetchError{CourseID: 7, CourseName: "Biology", Err: cause}
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Contains(t, err.Error(), "course 7 (Biology)")
}
