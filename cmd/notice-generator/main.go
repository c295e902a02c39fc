// Command notice-generator turns a tenant CSV into one rendered notice per
// row through the document merge service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/noticeflow/internal/config"
	"github.com/Lllllllleong/noticeflow/internal/logging"
)

var Version = "dev"

// app carries the state shared by the subcommands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logs       logging.Setup
}

func main() {
	a := &app{v: config.New()}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := a.rootCmd().ExecuteContext(ctx)
	stop()
	a.logs.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "notice-generator",
		Short:         "Generate tenant notices from a CSV export",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			_, err = a.logs.Configure(logging.Options{File: cfg.LogFile, Verbose: cfg.Verbose})
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML config file")
	flags.StringP("notice-type", "t", "", "Notice type (MAINTENANCE, FAILED_EXTERMINATION, MISSED_EXTERMINATION, LEASE_INFRACTION_DOGS)")
	flags.StringP("input", "i", "", "Source CSV file")
	flags.String("header", "auto", "Whether the first row is a header (auto, yes, no)")
	flags.String("template-dir", "templates", "Directory holding the notice templates")
	flags.StringP("credentials", "c", "", "Merge service credentials JSON (defaults to ADOBE_CLIENT_ID/ADOBE_CLIENT_SECRET)")
	flags.StringP("output-dir", "o", "output", "Directory for rendered notices")
	flags.String("output-format", "pdf", "Rendered format (pdf, docx)")
	flags.String("debug-json", "", "Also save the parsed batch as JSON at this path")
	flags.String("log-file", logging.DefaultFile, "Log file, truncated on every run")
	flags.BoolP("verbose", "v", false, "Debug output on the console")
	flags.String("properties-file", "", "YAML property directory")
	flags.String("oracle-dsn", "", "Load the property directory from this Oracle database")
	flags.String("oracle-table", "PROPERTIES", "Oracle table holding the property directory")
	flags.String("ledger", "", "SQLite file recording runs and notices")
	flags.Bool("verify-pdf", true, "Validate rendered PDFs before keeping them")

	for key, flag := range map[string]string{
		config.KeyNoticeType:     "notice-type",
		config.KeyInput:          "input",
		config.KeyHeader:         "header",
		config.KeyTemplateDir:    "template-dir",
		config.KeyCredentials:    "credentials",
		config.KeyOutputDir:      "output-dir",
		config.KeyOutputFormat:   "output-format",
		config.KeyDebugJSON:      "debug-json",
		config.KeyLogFile:        "log-file",
		config.KeyVerbose:        "verbose",
		config.KeyPropertiesFile: "properties-file",
		config.KeyOracleDSN:      "oracle-dsn",
		config.KeyOracleTable:    "oracle-table",
		config.KeyLedger:         "ledger",
		config.KeyVerifyPDF:      "verify-pdf",
	} {
		// The flag names are fixed above; binding cannot fail.
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(a.generateCmd())
	cmd.AddCommand(a.collectCmd())
	cmd.AddCommand(a.propertiesCmd())
	return cmd
}
