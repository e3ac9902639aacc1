package cmd

import (
	"fmt"

	cfgpkg "github.com/KaramelBytes/tumorstat/internal/config"
	"github.com/KaramelBytes/tumorstat/internal/dataset"
	"github.com/KaramelBytes/tumorstat/internal/pipeline"
	"github.com/spf13/cobra"
)

// Input flags shared by analyze and clean.
var (
	inDelimiter  string
	inSheetName  string
	inSheetIndex int
)

func addInputFlags(c *cobra.Command) {
	c.Flags().StringVar(&inDelimiter, "delimiter", "", "CSV delimiter: ',', ';', '|' or 'tab' (default: by file extension)")
	c.Flags().StringVar(&inSheetName, "sheet-name", "", "XLSX: sheet name to read (default: first sheet)")
	c.Flags().IntVar(&inSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used when --sheet-name is empty)")
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab", "\\t":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %q", s)
	}
}

// pipelineConfig resolves input paths and parsing options. Positional
// arguments override the configured paths; changed flags override config.
func pipelineConfig(cmd *cobra.Command, c *cfgpkg.Global, args []string) (pipeline.Config, error) {
	pc := pipeline.Config{
		MetadataPath:    c.MetadataPath,
		ResultsPath:     c.ResultsPath,
		OutlierRegimens: c.OutlierRegimens,
		FocusRegimen:    c.FocusRegimen,
		FocusSubject:    c.FocusSubject,
	}
	if len(args) == 2 {
		pc.MetadataPath, pc.ResultsPath = args[0], args[1]
	}

	delim := c.Delimiter
	if cmd.Flags().Changed("delimiter") {
		delim = inDelimiter
	}
	r, err := parseDelimiter(delim)
	if err != nil {
		return pc, err
	}
	pc.Load = dataset.LoadOptions{Delimiter: r, SheetName: c.SheetName, SheetIndex: c.SheetIndex}
	if cmd.Flags().Changed("sheet-name") {
		pc.Load.SheetName = inSheetName
	}
	if cmd.Flags().Changed("sheet-index") {
		if inSheetIndex < 1 {
			return pc, fmt.Errorf("--sheet-index must be >= 1")
		}
		pc.Load.SheetIndex = inSheetIndex
	}
	return pc, nil
}
