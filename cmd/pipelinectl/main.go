// Command pipelinectl renders the pipeline declaration set offline, so it
// can be reviewed and diffed without a Pulumi engine.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"infrastructure-pipeline/internal/config"
	"infrastructure-pipeline/internal/declare"
)

// Flags share their names with the pipeline:<key> stack configuration.
var configKeys = []string{
	"resourceNamePrefix",
	"accessLogsPrefix",
	"expirationDays",
	"keyDeletionWindowDays",
	"grantFullStorageAccess",
	"encryptionKeyArn",
	"loggingBucketName",
	"collaboratorsStack",
	"partition",
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("pipelinectl failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pipelinectl",
		Short:         "Inspect the pipeline bucket declarations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	for _, key := range configKeys {
		flags.String(key, "", "same as pipeline:"+key)
	}

	root.AddCommand(newRenderCmd(), newGraphCmd())
	return root
}

func loadSet(flags *pflag.FlagSet) (*declare.Set, error) {
	cfg, err := config.Parse(func(key string) (string, bool) {
		f := flags.Lookup(key)
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	})
	if err != nil {
		return nil, err
	}
	return declare.New(cfg.Declaration)
}

func newRenderCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the declared resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := loadSet(cmd.Flags())
			if err != nil {
				return err
			}
			var out []byte
			switch format {
			case "json":
				out, err = set.Render()
			case "yaml":
				out, err = set.RenderYAML()
			default:
				return fmt.Errorf("unknown format %q, want json or yaml", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func newGraphCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the dependency graph of the declared resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := loadSet(cmd.Flags())
			if err != nil {
				return err
			}
			g, err := set.Graph()
			if err != nil {
				return err
			}
			switch format {
			case "dot":
				_, err = fmt.Fprint(cmd.OutOrStdout(), g.DOT())
			case "mermaid":
				_, err = fmt.Fprint(cmd.OutOrStdout(), g.Mermaid())
			default:
				return fmt.Errorf("unknown format %q, want dot or mermaid", format)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "dot", "output format: dot or mermaid")
	return cmd
}
