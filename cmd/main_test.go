package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	require.NoError(t, os.WriteFile(path, []byte("print(1)\n"), 0o600))

	code, err := readSource(strings.NewReader("unused"), path)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", code)

	code, err = readSource(strings.NewReader("echo hi"), "-")
	require.NoError(t, err)
	assert.Equal(t, "echo hi", code)

	_, err = readSource(nil, filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestInitReader(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.NoError(t, InitReader(""), "a missing .env is not an error")
	assert.Error(t, InitReader("staging"), "a named env file must exist")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.env"), []byte("CODERUNNER_TEST_VALUE=42\n"), 0o600))
	t.Setenv("CODERUNNER_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("CODERUNNER_TEST_VALUE"))
	require.NoError(t, InitReader("local"))
	assert.Equal(t, "42", os.Getenv("CODERUNNER_TEST_VALUE"))
}
