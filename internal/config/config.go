// Package config loads the notice-generator configuration from flags, the
// environment (NOTICES_*) and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Lllllllleong/noticeflow/internal/logging"
	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
	"github.com/Lllllllleong/noticeflow/internal/property"
)

// EnvPrefix prefixes every environment override, e.g. NOTICES_OUTPUT_DIR.
const EnvPrefix = "NOTICES"

// Keys shared by flags, environment and config file.
const (
	KeyNoticeType     = "notice_type"
	KeyInput          = "input"
	KeyHeader         = "header"
	KeyTemplateDir    = "template_dir"
	KeyCredentials    = "credentials"
	KeyOutputDir      = "output_dir"
	KeyOutputFormat   = "output_format"
	KeyDebugJSON      = "debug_json"
	KeyLogFile        = "log_file"
	KeyVerbose        = "verbose"
	KeyPropertiesFile = "properties_file"
	KeyOracleDSN      = "oracle_dsn"
	KeyOracleTable    = "oracle_table"
	KeyLedger         = "ledger"
	KeyVerifyPDF      = "verify_pdf"
)

// Config is the resolved configuration of one CLI invocation.
type Config struct {
	NoticeType     string `mapstructure:"notice_type"`
	Input          string `mapstructure:"input"`
	Header         string `mapstructure:"header"`
	TemplateDir    string `mapstructure:"template_dir"`
	Credentials    string `mapstructure:"credentials"`
	OutputDir      string `mapstructure:"output_dir"`
	OutputFormat   string `mapstructure:"output_format"`
	DebugJSON      string `mapstructure:"debug_json"`
	LogFile        string `mapstructure:"log_file"`
	Verbose        bool   `mapstructure:"verbose"`
	PropertiesFile string `mapstructure:"properties_file"`
	OracleDSN      string `mapstructure:"oracle_dsn"`
	OracleTable    string `mapstructure:"oracle_table"`
	Ledger         string `mapstructure:"ledger"`
	VerifyPDF      bool   `mapstructure:"verify_pdf"`
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyNoticeType, "")
	v.SetDefault(KeyInput, "")
	v.SetDefault(KeyHeader, string(models.HeaderAuto))
	v.SetDefault(KeyTemplateDir, "templates")
	v.SetDefault(KeyCredentials, "")
	v.SetDefault(KeyOutputDir, "output")
	v.SetDefault(KeyOutputFormat, string(models.FormatPDF))
	v.SetDefault(KeyDebugJSON, "")
	v.SetDefault(KeyLogFile, logging.DefaultFile)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyPropertiesFile, "")
	v.SetDefault(KeyOracleDSN, "")
	v.SetDefault(KeyOracleTable, property.DefaultOracleTable)
	v.SetDefault(KeyLedger, "")
	v.SetDefault(KeyVerifyPDF, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile when set and resolves v into a Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ValidateCollect checks the settings needed to parse a source table.
func (c *Config) ValidateCollect() error {
	var errs []error
	if c.NoticeType == "" {
		errs = append(errs, errors.New("notice type is required"))
	} else if _, err := notice.SchemaFor(c.NoticeType); err != nil {
		errs = append(errs, err)
	}
	if c.Input == "" {
		errs = append(errs, errors.New("input file is required"))
	}
	if _, err := c.HeaderMode(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateGenerate checks everything a generation run needs.
func (c *Config) ValidateGenerate() error {
	errs := []error{c.ValidateCollect()}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.TemplateDir == "" {
		errs = append(errs, errors.New("template directory is required"))
	}
	if _, err := c.Format(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Format parses OutputFormat.
func (c *Config) Format() (models.OutputFormat, error) {
	return models.ParseOutputFormat(c.OutputFormat)
}

// HeaderMode parses Header.
func (c *Config) HeaderMode() (models.HeaderMode, error) {
	return models.ParseHeaderMode(c.Header)
}

// TemplatePath is the template of d inside TemplateDir.
func (c *Config) TemplatePath(d notice.Descriptor) string {
	return filepath.Join(c.TemplateDir, d.TemplateFile())
}

// Oracle returns the directory database settings, or false when no DSN is
// configured.
func (c *Config) Oracle() (property.OracleConfig, bool) {
	if c.OracleDSN == "" {
		return property.OracleConfig{}, false
	}
	return property.OracleConfig{DSN: c.OracleDSN, Table: c.OracleTable}, true
}
