package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "lda", cfg.Model)
	assert.Equal(t, uint32(20), cfg.TopicNum)
	assert.Equal(t, uint32(3), cfg.Depth)
}

func TestLoad(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "nlmt.yaml")
	content := "model: hlda\ndepth: 4\ngamma: 0.5\nseed: 99\n"
	assert.NoError(t, os.WriteFile(fn, []byte(content), 0644))

	cfg, err := Load(fn)
	assert.NoError(t, err)
	assert.Equal(t, "hlda", cfg.Model)
	assert.Equal(t, uint32(4), cfg.Depth)
	assert.Equal(t, 0.5, cfg.Gamma)
	assert.Equal(t, int64(99), cfg.Seed)
	// untouched options keep their defaults
	assert.Equal(t, uint32(20), cfg.TopicNum)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestModelConfig(t *testing.T) {
	cfg := Default()
	cfg.TopicNum = 5
	cfg.Alpha = 0.1
	cfg.Seed = 3

	mc := cfg.ModelConfig()
	assert.Equal(t, uint32(5), mc.TopicNum)
	assert.Equal(t, float32(0.1), mc.Alpha)
	assert.Equal(t, int64(3), mc.Seed)
}
