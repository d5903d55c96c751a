package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCommandWritesStarterConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	root := Root()
	root.SetArgs([]string{"init", "--path", path})
	require.NoError(t, root.Execute())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestInitCommandRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	root := Root()
	root.SetArgs([]string{"init", "--path", path})
	require.NoError(t, root.Execute())

	root = Root()
	root.SetArgs([]string{"init", "--path", path})
	assert.Error(t, root.Execute())
}
