package reflfix

import(
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	v := NewValidationError("bad bits %d", 12)
	assert.Equal(t, ErrValidation, KindOf(v))
	assert.EqualError(t, v, "bad bits 12")

	p := errors.Wrap(NewPlausibilityError("gammas too far out of range"), "calibrate")
	assert.True(t, IsKind(p, ErrPlausibility))
	assert.Contains(t, p.Error(), "gammas too far out of range")

	_, openErr := os.Open("/nonexistent/file.tif")
	io := WrapIOError(openErr, "read '%s'", "file.tif")
	assert.True(t, IsKind(io, ErrIO))
	assert.True(t, errors.Is(io, os.ErrNotExist))

	assert.Equal(t, ErrUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, ErrUnknown))
	assert.Equal(t, "plausibility", ErrPlausibility.String())
}
