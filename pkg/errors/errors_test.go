package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, CodeUploadFailed, "failed to upload posts.html")

	assert.True(t, IsCode(err, CodeUploadFailed))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "4003")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodePublishInProgress, "publish already in progress"))
	assert.True(t, IsCode(err, CodePublishInProgress))
	assert.False(t, IsCode(err, CodeUploadFailed))
	assert.False(t, IsCode(stderrors.New("plain"), CodeUploadFailed))
}

func TestAsAppError(t *testing.T) {
	appErr := AsAppError(fmt.Errorf("outer: %w", ErrStateNotFound))
	require.NotNil(t, appErr)
	assert.Equal(t, CodeStateNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)

	assert.Nil(t, AsAppError(stderrors.New("plain")))
	assert.False(t, IsAppError(stderrors.New("plain")))
	assert.True(t, IsAppError(ErrPublishInProgress))
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	detailed := ErrPublishInProgress.WithDetail("site 3")
	assert.Equal(t, "site 3", detailed.Detail)
	assert.Empty(t, ErrPublishInProgress.Detail)
	assert.Equal(t, ErrPublishInProgress.Code, detailed.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusConflict, New(CodePublishInProgress, "x").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, New(CodeSiteNotFound, "x").HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, New(CodeCoordinatorError, "x").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New(CodeUploadFailed, "x").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, New(CodeInvalidParam, "x").HTTPStatus)
}
