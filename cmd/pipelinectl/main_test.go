package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderJSON(t *testing.T) {
	out, err := run(t, "render", "--resourceNamePrefix", "sats-dev-")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	bucket := doc["bucket"].(map[string]any)
	assert.Equal(t, "sats-dev-pipeline-data-stage", bucket["name"])
	assert.Equal(t, true, bucket["enforceSSL"])
}

func TestRenderYAML(t *testing.T) {
	out, err := run(t, "render", "--format", "yaml", "--resourceNamePrefix", "sats-dev-", "--expirationDays", "10")
	require.NoError(t, err)

	var doc struct {
		Bucket struct {
			LifecycleRules []struct {
				ExpirationDays int `yaml:"expirationDays"`
			} `yaml:"lifecycleRules"`
		} `yaml:"bucket"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Bucket.LifecycleRules, 1)
	assert.Equal(t, 10, doc.Bucket.LifecycleRules[0].ExpirationDays)
}

func TestRenderIsStable(t *testing.T) {
	a, err := run(t, "render", "--resourceNamePrefix", "sats-dev-")
	require.NoError(t, err)
	b, err := run(t, "render", "--resourceNamePrefix", "sats-dev-")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGraph(t *testing.T) {
	out, err := run(t, "graph", "--resourceNamePrefix", "sats-dev-")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph pipeline")

	out, err = run(t, "graph", "--format", "mermaid", "--resourceNamePrefix", "sats-dev-")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
}

func TestErrors(t *testing.T) {
	_, err := run(t, "render")
	assert.ErrorContains(t, err, "resourceNamePrefix")

	_, err = run(t, "render", "--format", "toml", "--resourceNamePrefix", "sats-dev-")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "render", "--resourceNamePrefix", "UPPER-")
	assert.ErrorContains(t, err, "invalid declaration options")
}
