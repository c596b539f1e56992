package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetKind(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"Validation", Validation("bad field"), KindValidation},
		{"NotFound", NotFound("missing"), KindNotFound},
		{"InvalidToken", InvalidToken("bad token"), KindInvalidToken},
		{"Forbidden", Forbidden("nope"), KindForbidden},
		{"Duplicate", Duplicate("dupe"), KindDuplicateRecord},
		{"Configuration", Configuration("bad config"), KindConfiguration},
		{"BackendUnavailable", BackendUnavailable("down"), KindBackendUnavailable},
		{"Unhandled", Unhandled("oops"), KindUnhandled},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.kind, c.err.Kind)
		})
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	base := errors.New("boom")
	err := Unhandled("failed to do thing").WithCause(base)
	assert.Contains(t, err.Error(), "failed to do thing")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, base)
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := Validation("bad field")
	assert.Equal(t, "validation: bad field", err.Error())
}

func TestWithDetails(t *testing.T) {
	err := Validation("bad field").WithDetails(map[string]interface{}{"field": "name"})
	require.NotNil(t, err.Details)
	assert.Equal(t, "name", err.Details["field"])
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	inner := NotFound("missing record")
	wrapped := fmt.Errorf("context: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOfDefaultsToUnhandledForForeignErrors(t *testing.T) {
	assert.Equal(t, KindUnhandled, KindOf(errors.New("plain error")))
}

func TestKindOfNilIsEmpty(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:         422,
		KindNotFound:           404,
		KindInvalidToken:       401,
		KindForbidden:          403,
		KindDuplicateRecord:    404,
		KindConfiguration:      500,
		KindBackendUnavailable: 500,
		KindUnhandled:          500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), "kind %s", kind)
	}
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, 0, ExitCode(""))
	assert.Equal(t, 1, ExitCode(KindValidation))
	assert.Equal(t, 1, ExitCode(KindUnhandled))
}
