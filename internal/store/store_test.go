package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStorage_SetGetClear(t *testing.T) {
	ctx := context.Background()
	ss, err := OpenSessionStorage(ctx, t.TempDir())
	require.NoError(t, err)
	defer ss.Close()

	_, ok, err := ss.Get(ctx, KeySession)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ss.SetJSON(ctx, KeySession, map[string]any{"username": "staff1"}))
	require.NoError(t, ss.Set(ctx, KeyLastPage, "tasks"))

	var got map[string]any
	ok, err = ss.GetJSON(ctx, KeySession, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "staff1", got["username"])

	keys, err := ss.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyLastPage, KeySession}, keys)

	require.NoError(t, ss.Remove(ctx, KeyLastPage))
	_, ok, err = ss.Get(ctx, KeyLastPage)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ss.Clear(ctx))
	keys, err = ss.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSessionStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ss, err := OpenSessionStorage(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, ss.Set(ctx, KeySession, `{"username":"admin"}`))
	require.NoError(t, ss.Close())

	ss2, err := OpenSessionStorage(ctx, dir)
	require.NoError(t, err)
	defer ss2.Close()
	v, ok, err := ss2.Get(ctx, KeySession)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"username":"admin"}`, v)
}

func TestSessionStorage_CorruptJSONIsMissing(t *testing.T) {
	ctx := context.Background()
	ss, err := OpenSessionStorage(ctx, t.TempDir())
	require.NoError(t, err)
	defer ss.Close()

	require.NoError(t, ss.Set(ctx, KeyTakeovers, "{not json"))
	var v map[string]string
	ok, err := ss.GetJSON(ctx, KeyTakeovers, &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadConfig_DefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKFLOW_CONFIG_DIR", dir)
	t.Setenv("TASKFLOW_SERVER", "")
	t.Setenv("TASKFLOW_PROFILE", "")
	t.Setenv("TASKFLOW_TIMEOUT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, cfg.Server)
	assert.Equal(t, DefaultProfile, cfg.Profile)
	assert.Equal(t, DefaultTimeout, cfg.RequestTimeout())

	cfg.Server = "http://backend.local:8080"
	cfg.Timeout = "3s"
	require.NoError(t, SaveConfig(cfg))
	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	cfg2, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://backend.local:8080", cfg2.Server)
	assert.Equal(t, 3*time.Second, cfg2.RequestTimeout())

	t.Setenv("TASKFLOW_SERVER", "http://override:1")
	t.Setenv("TASKFLOW_PROFILE", "shop-b")
	cfg3, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://override:1", cfg3.Server)
	assert.Equal(t, "shop-b", cfg3.Profile)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKFLOW_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestProfileDir(t *testing.T) {
	t.Setenv("TASKFLOW_CONFIG_DIR", t.TempDir())

	d, err := ProfileDir("")
	require.NoError(t, err)
	assert.Equal(t, "default", filepath.Base(d))

	_, err = ProfileDir("../escape")
	assert.Error(t, err)
}
