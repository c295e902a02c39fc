package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/noticeflow/internal/config"
	"github.com/Lllllllleong/noticeflow/internal/property"
)

func (a *app) propertiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "properties",
		Short: "List the property directory used for enrichment",
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, err := loadDirectory(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProperties(directory))
			return nil
		},
	}
}

// loadDirectory picks the property directory source: Oracle when a DSN is
// configured, then a YAML file, then the built-in directory.
func loadDirectory(ctx context.Context, cfg *config.Config) (*property.Directory, error) {
	if oc, ok := cfg.Oracle(); ok {
		slog.Info("Loading property directory from Oracle.", "table", oc.Table)
		return property.LoadOracle(ctx, oc)
	}
	if cfg.PropertiesFile != "" {
		slog.Info("Loading property directory from file.", "path", cfg.PropertiesFile)
		return property.LoadFile(cfg.PropertiesFile)
	}
	return property.Default(), nil
}
