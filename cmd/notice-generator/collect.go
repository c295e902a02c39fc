package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/noticeflow/internal/notice"
	"github.com/Lllllllleong/noticeflow/internal/services"
)

func (a *app) collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Parse the source CSV without rendering anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := cfg.ValidateCollect(); err != nil {
				return err
			}
			descriptor, err := notice.SchemaFor(cfg.NoticeType)
			if err != nil {
				return err
			}

			header, err := cfg.HeaderMode()
			if err != nil {
				return err
			}
			batch, err := services.CollectFile(cfg.Input, descriptor, header)
			if err != nil {
				return err
			}
			if cfg.DebugJSON != "" {
				if err := services.WriteBatchJSON(batch, cfg.DebugJSON); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderCollect(descriptor, batch))
			return nil
		},
	}
}
