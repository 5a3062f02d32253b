package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyzj/cherrybot/config"
)

func TestLoadConfigWithRoot(t *testing.T) {
	root := t.TempDir()
	rootDir, cfgFile = root, ""
	defer func() { rootDir = "" }()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "conf", config.DefaultFilename))
	assert.Equal(t, filepath.Join(root, "log"), cfg.Log.Dir)
	assert.Equal(t, filepath.Join(root, "data", "cherrybot.db"), cfg.Storage.Filename)
}

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "cherrybot "+version+"\n", buf.String())
}
