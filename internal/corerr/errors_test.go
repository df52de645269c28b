package corerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreError_IsSentinel(t *testing.T) {
	err := New(KindNotFound, "target path does not exist")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
}

func TestCoreError_WrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, cause, "writing manifest")

	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
}

func TestCoreError_WithPaths(t *testing.T) {
	base := New(KindChecksumDrift, "recorded checksum mismatch")
	withPaths := base.WithPaths("a.go", "b.go")

	assert.Empty(t, base.Paths)
	assert.Equal(t, []string{"a.go", "b.go"}, withPaths.Paths)
}

func TestAs(t *testing.T) {
	err := New(KindPathTraversal, "escapes root")
	kind, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindPathTraversal, kind)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("plain"), 11},
		{New(KindPathTraversal, "x"), 4},
		{New(KindLspError, "x"), 3},
		{New(KindValidationFail, "x"), 11},
		{New(KindPartialFailure, "x"), 0},
		{New(KindInternal, "x"), 8},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExitCode(tc.err))
	}
}
