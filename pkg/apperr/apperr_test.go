package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("case not found")))
	assert.Equal(t, KindBadRequest, KindOf(fmt.Errorf("submit: %w", BadRequest("phase is not ongoing"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to upload file", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to upload file: connection reset", err.Error())
	assert.True(t, Is(err, KindInternal))
	assert.False(t, Is(err, KindNotFound))
}

func TestSentinelIdentity(t *testing.T) {
	sentinel := BadRequest("already responded")
	wrapped := fmt.Errorf("respond: %w", sentinel)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, BadRequest("already responded"))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindBadRequest:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindInternal:     http.StatusInternalServerError,
		Kind("other"):    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}
