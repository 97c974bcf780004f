package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botframe/billingcore/pkg/config"
)

type testServerConfig struct {
	Addr    string `env:"TEST_HTTP_ADDR" envDefault:":8080"`
	Secret  string `env:"TEST_SECRET" envDefault:"fallback"`
	Workers int    `env:"TEST_WORKERS" envDefault:"3"`
}

type testRequiredConfig struct {
	Token string `env:"TEST_ABSENT_TOKEN,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testServerConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoad_CachesPerType(t *testing.T) {
	var first testServerConfig
	require.NoError(t, config.Load(&first))

	// Mutating the environment after the first load has no effect; the
	// cached copy wins.
	t.Setenv("TEST_SECRET", "changed")
	var second testServerConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, first, second)
}

func TestLoad_RequiredMissing(t *testing.T) {
	var cfg testRequiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	assert.ErrorIs(t, config.Load[testServerConfig](nil), config.ErrNilPointer)
}
