package config

import (
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/common/resource"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrastructure-pipeline/internal/declare"
)

func mapGetter(values map[string]string) Getter {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParse_Defaults(t *testing.T) {
	c, err := Parse(mapGetter(map[string]string{"resourceNamePrefix": "sats-dev-"}))
	require.NoError(t, err)

	assert.Equal(t, declare.DefaultOptions("sats-dev-"), c.Declaration)
	assert.Equal(t, DefaultHandlerArchive, c.HandlerArchive)
}

func TestParse_Overrides(t *testing.T) {
	c, err := Parse(mapGetter(map[string]string{
		"resourceNamePrefix":     "sats-prod-",
		"accessLogsPrefix":       "logs/",
		"expirationDays":         "45",
		"keyDeletionWindowDays":  "30",
		"grantFullStorageAccess": "false",
		"loggingBucketName":      "shared-logs",
		"partition":              "aws-cn",
		"handlerArchive":         "dist/fn.zip",
	}))
	require.NoError(t, err)

	opts := c.Declaration
	assert.Equal(t, "sats-prod-", opts.ResourceNamePrefix)
	assert.Equal(t, "logs/", opts.AccessLogsPrefix)
	assert.Equal(t, 45, opts.ExpirationDays)
	assert.Equal(t, 30, opts.KeyDeletionWindowDays)
	assert.False(t, opts.GrantFullStorageAccess)
	assert.Equal(t, "shared-logs", opts.LoggingBucketName)
	assert.Equal(t, "aws-cn", opts.Partition)
	assert.Equal(t, "dist/fn.zip", c.HandlerArchive)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(mapGetter(map[string]string{
		"expirationDays":         "soon",
		"grantFullStorageAccess": "maybe",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline:resourceNamePrefix")
	assert.Contains(t, err.Error(), "pipeline:expirationDays")
	assert.Contains(t, err.Error(), "pipeline:grantFullStorageAccess")
}

type noopMocks struct{}

func (noopMocks) NewResource(args pulumi.MockResourceArgs) (string, resource.PropertyMap, error) {
	return args.Name + "_id", args.Inputs, nil
}

func (noopMocks) Call(args pulumi.MockCallArgs) (resource.PropertyMap, error) {
	return resource.PropertyMap{}, nil
}

func TestLoad(t *testing.T) {
	t.Setenv(pulumi.EnvConfig, `{"pipeline:resourceNamePrefix":"sats-test-","pipeline:expirationDays":"14"}`)

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		c, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sats-test-", c.Declaration.ResourceNamePrefix)
		assert.Equal(t, 14, c.Declaration.ExpirationDays)
		assert.True(t, c.Declaration.GrantFullStorageAccess)
		return nil
	}, pulumi.WithMocks("infrastructure-pipeline", "test", noopMocks{}))
	require.NoError(t, err)
}
