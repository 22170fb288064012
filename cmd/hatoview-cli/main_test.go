package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPasswordFromPipedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\r\nignored\n"), 0600))
	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	password, err := readPassword(in, "admin")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)
}

func TestReadPasswordEmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, nil, 0600))
	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	_, err = readPassword(in, "admin")
	assert.Error(t, err)
}
