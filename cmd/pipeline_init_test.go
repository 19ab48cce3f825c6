package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curasense/triage-cli/internal/config"
	"github.com/curasense/triage-cli/internal/kb"
	"github.com/curasense/triage-cli/internal/rank"
)

// setTestConfig installs a valid config pointing at temp paths.
func setTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	kbPath := filepath.Join(dir, "conditions.json")
	require.NoError(t, kb.WriteJSON(kbPath, testRecords()))

	c := &config.Config{}
	c.KB.Paths = []string{kbPath}
	c.KB.Required = true
	c.CrossCheck = config.CrossCheckConfig{
		TopK:                10,
		TopM:                1,
		EnrichmentThreshold: 0.6,
		EnrichmentEnabled:   false,
		LookupTimeoutSecs:   8,
		RankTimeoutSecs:     30,
		ResponseLimit:       5,
	}
	c.DBpedia = config.DBpediaConfig{
		Endpoint:      "http://127.0.0.1:1/sparql",
		TimeoutSecs:   1,
		CacheTTLSecs:  3600,
		CacheFailures: true,
		RatePerSec:    5,
		MaxAttempts:   1,
	}
	c.Store.Driver = "file"
	c.Store.CacheDir = filepath.Join(dir, "cache")
	c.Ranker.Provider = "lexical"
	c.Ranker.MaxResults = 5
	c.Server.Port = 8000

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

func TestLoadKB(t *testing.T) {
	c := setTestConfig(t)

	index, path, err := loadKB()
	require.NoError(t, err)
	assert.Equal(t, c.KB.Paths[0], path)
	assert.Equal(t, 2, index.Len())
}

func TestLoadKB_Missing(t *testing.T) {
	c := setTestConfig(t)
	c.KB.Paths = []string{filepath.Join(t.TempDir(), "nope.json")}

	_, _, err := loadKB()
	require.Error(t, err)
	assert.True(t, eris.Is(err, kb.ErrNotFound))

	c.KB.Required = false
	index, path, err := loadKB()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, index.Len())
}

func TestInitRanker(t *testing.T) {
	c := setTestConfig(t)
	index := kb.NewIndex(testRecords())

	r, err := initRanker(index)
	require.NoError(t, err)
	assert.IsType(t, &rank.Lexical{}, r)

	c.Ranker.Provider = "anthropic"
	c.Anthropic.Key = "sk-ant-test"
	r, err = initRanker(index)
	require.NoError(t, err)
	assert.IsType(t, &rank.Claude{}, r)

	c.Ranker.Provider = "bert"
	_, err = initRanker(index)
	require.Error(t, err)
}

func TestInitPipeline_EnrichmentDisabled(t *testing.T) {
	setTestConfig(t)

	env, err := initPipeline(context.Background(), "analyze")
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Store)
	assert.Nil(t, env.Cache)
	require.NotNil(t, env.Service)

	resp := env.Service.Triage(context.Background(), triageRequest("fever and cough"))
	require.NotEmpty(t, resp.Conditions)
	assert.Equal(t, "Influenza", resp.Conditions[0].Name)
	assert.Nil(t, resp.Conditions[0].Lookup)
}

func TestInitPipeline_EnrichmentEnabled(t *testing.T) {
	c := setTestConfig(t)
	c.CrossCheck.EnrichmentEnabled = true

	env, err := initPipeline(context.Background(), "serve")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Cache)
	assert.DirExists(t, c.Store.CacheDir)
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	c := setTestConfig(t)
	c.CrossCheck.TopK = 0

	_, err := initPipeline(context.Background(), "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crosscheck.top_k")
}
