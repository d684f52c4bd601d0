package walog

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func readFile(path string) ([]byte, error) { return os.ReadFile(path) }
func writeFile(path string, data []byte) error { return os.WriteFile(path, data, 0644) }

// S5: append "HelloWorld" (10 bytes), reopen, and the first record read
// back equals "HelloWorld".
func TestScenarioS5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "000001.log")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Append([]byte("HelloWorld")))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "HelloWorld", string(got))
}

func TestMultipleRecordsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "000002.log")

	w, err := Create(path)
	require.NoError(t, err)
	records := [][]byte{[]byte("first"), []byte("second"), []byte("a much longer third record")}
	for _, rec := range records {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range records {
		got, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, string(want), string(got))
	}

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestCorruptRecordReportsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "000003.log")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Append([]byte("payload")))
	require.NoError(t, w.Close())

	data, err := readFile(path)
	require.NoError(t, err)
	data[recordHeaderSize] ^= 0xff
	require.NoError(t, writeFile(path, data))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.Error(t, err)
}
