package status

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndIs(t *testing.T) {
	err := New(Corruption, "bad block at offset %d", 42)
	require.True(t, Is(err, Corruption))
	require.False(t, Is(err, IOError))
	require.Equal(t, Corruption, KindOf(err))
	require.Contains(t, err.Error(), "bad block at offset 42")
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	underlying := &os.PathError{Op: "open", Path: "x.sst", Err: os.ErrNotExist}
	err := Wrap(IOError, underlying)

	require.True(t, Is(err, IOError))
	var pe *os.PathError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, underlying, pe)
}

func TestWrapSurvivesFmtWrap(t *testing.T) {
	err := New(NotSupported, "range keys")
	wrapped := fmt.Errorf("loading filter: %w", err)
	require.True(t, Is(wrapped, NotSupported))
	require.Equal(t, NotSupported, KindOf(wrapped))
}

func TestKindOfNilIsOk(t *testing.T) {
	require.Equal(t, Ok, KindOf(nil))
	require.True(t, Is(nil, Ok))
}

func TestKindOfUncategorizedIsIOError(t *testing.T) {
	require.Equal(t, IOError, KindOf(fmt.Errorf("mystery failure")))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "OK", Ok.String())
	require.Equal(t, "NotFound", NotFound.String())
	require.Equal(t, "Corruption", Corruption.String())
}
