package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	MetadataPath string `mapstructure:"metadata_path" yaml:"metadata_path"`
	ResultsPath  string `mapstructure:"results_path" yaml:"results_path"`
	OutputDir    string `mapstructure:"output_dir" yaml:"output_dir"`
	Format       string `mapstructure:"format" yaml:"format"`

	// Input parsing. Delimiter is a single character; empty picks one from
	// the file extension.
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	SheetName  string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex int    `mapstructure:"sheet_index" yaml:"sheet_index"`

	// Analysis focus
	OutlierRegimens []string `mapstructure:"outlier_regimens" yaml:"outlier_regimens"`
	FocusRegimen    string   `mapstructure:"focus_regimen" yaml:"focus_regimen"`
	FocusSubject    string   `mapstructure:"focus_subject" yaml:"focus_subject"`

	// Charts
	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height"`
}

// Dir returns ~/.tumorstat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tumorstat"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tumorstat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TUMORSTAT")
	v.AutomaticEnv()

	v.SetDefault("metadata_path", filepath.Join("data", "Mouse_metadata.csv"))
	v.SetDefault("results_path", filepath.Join("data", "Study_results.csv"))
	v.SetDefault("output_dir", "")
	v.SetDefault("format", "markdown")
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 1)
	v.SetDefault("outlier_regimens", []string{"Capomulin", "Ramicane", "Infubinol", "Ceftamin"})
	v.SetDefault("focus_regimen", "Capomulin")
	v.SetDefault("focus_subject", "l509")
	v.SetDefault("chart_width", 1024)
	v.SetDefault("chart_height", 640)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no run could use.
func (c *Global) Validate() error {
	switch c.Format {
	case "markdown", "md", "json":
	default:
		return fmt.Errorf("invalid format %q (want markdown, md or json)", c.Format)
	}
	if len([]rune(c.Delimiter)) > 1 {
		return fmt.Errorf("invalid delimiter %q (want a single character)", c.Delimiter)
	}
	if c.SheetIndex < 1 {
		return fmt.Errorf("invalid sheet_index %d (1-based)", c.SheetIndex)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("invalid chart size %dx%d", c.ChartWidth, c.ChartHeight)
	}
	return nil
}
