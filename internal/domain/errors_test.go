package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpError_Format(t *testing.T) {
	err := LoadError("open", "hero", errors.New("unexpected end of JSON input"))
	assert.Equal(t, "open: load (section=hero): unexpected end of JSON input", err.Error())
	assert.Equal(t, "unexpected end of JSON input", err.Message())

	var nilErr *OpError
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	base := SaveError("save", "faq", errors.New("409 conflict"))
	wrapped := fmt.Errorf("saving faq: %w", base)

	assert.True(t, IsKind(wrapped, KindSave))
	assert.False(t, IsKind(wrapped, KindLoad))
	assert.False(t, IsKind(errors.New("plain"), KindSave))

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindSave, kind)
}

func TestUnknownSectionError_IsNotFound(t *testing.T) {
	err := UnknownSectionError("load sections", "pricing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsKind(err, KindUnknownSection))
	assert.Contains(t, err.Error(), `"pricing"`)
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{Service: "github", Status: 200, Code: "bad_verification_code"}
	assert.Equal(t, "bad_verification_code", err.Detail())
	assert.True(t, IsKind(fmt.Errorf("exchange: %w", err), KindUpstream))

	err.Description = "The code passed is incorrect or expired."
	assert.Equal(t, "The code passed is incorrect or expired.", err.Detail())
	assert.Equal(t, "github error (status 200): The code passed is incorrect or expired.", err.Error())

	transport := &UpstreamError{Service: "github", Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "github error: dial tcp: refused", transport.Error())
}
