package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	base := errors.New("dial tcp: refused")
	wrapped := fmt.Errorf("create members: %w", Wrap(base, CodeUnavailable, "individual service unreachable"))

	assert.Equal(t, CodeUnavailable, CodeOf(wrapped))
	assert.True(t, Is(wrapped, CodeUnavailable))
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, CodeInternal, CodeOf(base))
	assert.False(t, Is(base, CodeBadRequest))
}
