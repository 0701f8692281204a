package store

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("TASKFLOW_CONFIG_DIR", cfgDir)

	seed := DefaultConfig()
	seed.Server = "http://seed.test"
	require.NoError(t, SaveConfig(seed))

	const n = 64
	errCh := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.Profile = fmt.Sprintf("p-%d", i)
			cfg.Branches = append(cfg.Branches, fmt.Sprintf("SHOP-%d", i))

			if err := SaveConfig(cfg); err != nil {
				errCh <- err
				return
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err, "concurrent SaveConfig")
	}

	path, err := ConfigPath()
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, yaml.Unmarshal(raw, &cfg), "config.yaml unparseable:\n%s", raw)
	assert.Equal(t, "http://seed.test", cfg.Server, "server lost across writers")

	ents, err := os.ReadDir(cfgDir)
	require.NoError(t, err)
	for _, e := range ents {
		assert.False(t, strings.HasPrefix(e.Name(), ".config-"), "leftover temp file: %s", e.Name())
	}
}
