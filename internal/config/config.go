// Package config reads the stack configuration of the pipeline program.
package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	pulumiconfig "github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
	"github.com/spf13/cast"

	"infrastructure-pipeline/internal/declare"
)

// Namespace is the Pulumi config namespace, as in `pulumi config set pipeline:<key>`.
const Namespace = "pipeline"

// DefaultHandlerArchive is where `make initaction` leaves the function bundle.
const DefaultHandlerArchive = "./bin/initaction.zip"

// Config is the resolved stack configuration.
type Config struct {
	Declaration declare.Options
	// Zip archive holding the compiled initialization function (`bootstrap`).
	HandlerArchive string
}

// Getter returns a raw configuration value and whether it is set.
type Getter func(key string) (string, bool)

// Load reads the configuration from the Pulumi stack.
func Load(ctx *pulumi.Context) (*Config, error) {
	return Parse(func(key string) (string, bool) {
		v := pulumiconfig.Get(ctx, Namespace+":"+key)
		return v, v != ""
	})
}

// Parse resolves the configuration from get, applying defaults for unset keys.
func Parse(get Getter) (*Config, error) {
	var result *multierror.Error

	prefix, ok := get("resourceNamePrefix")
	if !ok || prefix == "" {
		result = multierror.Append(result, fmt.Errorf("missing required configuration variable %s:resourceNamePrefix", Namespace))
	}

	opts := declare.DefaultOptions(prefix)
	c := &Config{HandlerArchive: DefaultHandlerArchive}

	str := func(key string, dst *string) {
		if v, ok := get(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		v, ok := get(key)
		if !ok || v == "" {
			return
		}
		n, err := cast.ToIntE(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s:%s: %w", Namespace, key, err))
			return
		}
		*dst = n
	}
	boolean := func(key string, dst *bool) {
		v, ok := get(key)
		if !ok || v == "" {
			return
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s:%s: %w", Namespace, key, err))
			return
		}
		*dst = b
	}

	str("accessLogsPrefix", &opts.AccessLogsPrefix)
	integer("expirationDays", &opts.ExpirationDays)
	integer("keyDeletionWindowDays", &opts.KeyDeletionWindowDays)
	boolean("grantFullStorageAccess", &opts.GrantFullStorageAccess)
	str("encryptionKeyArn", &opts.EncryptionKeyARN)
	str("loggingBucketName", &opts.LoggingBucketName)
	str("partition", &opts.Partition)
	str("handlerArchive", &c.HandlerArchive)
	str("collaboratorsStack", &opts.CollaboratorsStack)

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	c.Declaration = opts
	return c, nil
}
