package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/tumorstat/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tumorstat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "metadata_path: %s\n", cfg.MetadataPath)
		fmt.Fprintf(out, "results_path: %s\n", cfg.ResultsPath)
		if cfg.OutputDir != "" {
			fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		}
		fmt.Fprintf(out, "format: %s\n", cfg.Format)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", cfg.SheetName)
		}
		fmt.Fprintf(out, "sheet_index: %d\n", cfg.SheetIndex)
		fmt.Fprintf(out, "outlier_regimens: %s\n", strings.Join(cfg.OutlierRegimens, ","))
		fmt.Fprintf(out, "focus_regimen: %s\n", cfg.FocusRegimen)
		fmt.Fprintf(out, "focus_subject: %s\n", cfg.FocusSubject)
		fmt.Fprintf(out, "chart_width: %d\n", cfg.ChartWidth)
		fmt.Fprintf(out, "chart_height: %d\n", cfg.ChartHeight)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		switch key {
		case "metadata_path":
			c.MetadataPath = val
		case "results_path":
			c.ResultsPath = val
		case "output_dir":
			c.OutputDir = val
		case "format":
			c.Format = strings.ToLower(val)
		case "delimiter":
			if _, err := parseDelimiter(val); err != nil {
				return err
			}
			if val == "tab" || val == "\\t" {
				val = "\t"
			}
			c.Delimiter = val
		case "sheet_name":
			c.SheetName = val
		case "sheet_index":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for sheet_index: %w", err)
			}
			c.SheetIndex = i
		case "outlier_regimens":
			c.OutlierRegimens = splitList(val)
		case "focus_regimen":
			c.FocusRegimen = val
		case "focus_subject":
			c.FocusSubject = val
		case "chart_width":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for chart_width: %w", err)
			}
			c.ChartWidth = i
		case "chart_height":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for chart_height: %w", err)
			}
			c.ChartHeight = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
