package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileLifecycle(t *testing.T) {
	root := isolate(t)
	assert.Equal(t, root, ConfigRoot())
	assert.Equal(t, filepath.Join(root, "comics.yaml"), ComicsFile())

	_, err := ActiveConfigPath()
	require.ErrorIs(t, err, ErrNoConfig)

	def, err := InitDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, ConfigPathByLabel(DefaultLabel), def)

	_, err = InitDefaultConfig()
	require.ErrorIs(t, err, os.ErrExist)

	_, err = CreateEmptyConfig("night")
	require.NoError(t, err)
	_, err = CreateEmptyConfig("night")
	require.Error(t, err)

	require.NoError(t, SwitchConfig("night"))
	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "night", label)

	require.NoError(t, RenameConfig("night", "weekly"))
	label, _ = CurrentLabel()
	assert.Equal(t, "weekly", label, "renaming the active profile follows it")

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Default", list[0].Label)
	assert.True(t, list[1].Active)

	require.Error(t, RemoveConfig("Default"))
	require.NoError(t, RemoveConfig("weekly"))
	label, _ = CurrentLabel()
	assert.Equal(t, "Default", label)

	require.Error(t, SwitchConfig("weekly"))
}

func TestAddConfigCopiesFile(t *testing.T) {
	isolate(t)

	src := filepath.Join(t.TempDir(), "mine.yaml")
	require.NoError(t, os.WriteFile(src, []byte("output: x\n"), 0644))

	require.NoError(t, AddConfig("mine", src))
	raw, err := os.ReadFile(ConfigPathByLabel("mine"))
	require.NoError(t, err)
	assert.Equal(t, "output: x\n", string(raw))

	require.Error(t, AddConfig("mine", src))
	require.Error(t, AddConfig(" ", src))
	require.Error(t, AddConfig("../escape", src))
	require.Error(t, AddConfig("other", filepath.Join(t.TempDir(), "missing.yaml")))
}
