package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/tumorstat/internal/pipeline"
	"github.com/KaramelBytes/tumorstat/internal/report"
	"github.com/KaramelBytes/tumorstat/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputDir    string
	anaFormat       string
	anaNoCharts     bool
	anaRegimens     []string
	anaFocusRegimen string
	anaSubject      string
	anaWidth        int
	anaHeight       int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [metadata results]",
	Short: "Run the full study pipeline and report the results",
	Long: `Load the metadata and results tables (CSV, TSV or XLSX), merge and clean them,
then report per-regimen statistics, final-volume outliers, the focus subject's
time series and the weight/volume regression. With --output-dir the report,
charts and a manifest are written there; otherwise the report goes to stdout.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected 0 or 2 arguments (metadata results), got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		pc, err := pipelineConfig(cmd, c, args)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("regimens") {
			pc.OutlierRegimens = anaRegimens
		}
		if f.Changed("focus-regimen") {
			pc.FocusRegimen = anaFocusRegimen
		}
		if f.Changed("subject") {
			pc.FocusSubject = anaSubject
		}
		format := c.Format
		if f.Changed("format") {
			format = anaFormat
		}
		outDir := c.OutputDir
		if f.Changed("output-dir") {
			outDir = anaOutputDir
		}
		opt := report.ChartOptions{Width: c.ChartWidth, Height: c.ChartHeight}
		if f.Changed("width") {
			opt.Width = anaWidth
		}
		if f.Changed("height") {
			opt.Height = anaHeight
		}

		var body []byte
		var name string
		switch format {
		case "markdown", "md":
			name = "report.md"
		case "json":
			name = "report.json"
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", format)
		}

		res, err := pipeline.Run(pc, logger)
		if err != nil {
			return err
		}
		if name == "report.json" {
			if body, err = report.JSON(res); err != nil {
				return err
			}
		} else {
			body = []byte(report.Markdown(res))
		}

		if outDir == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			printWarnings(res.Warnings)
			return nil
		}

		p, err := utils.WriteInDir(outDir, name, body)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote report to %s\n", p)
		artifacts := []report.Artifact{{Kind: "report", Title: "Study report", Path: p}}
		if !anaNoCharts {
			charts, err := report.RenderCharts(outDir, res, opt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: some charts were not written: %v\n", err)
			}
			for _, a := range charts {
				fmt.Printf("✓ Wrote %s chart to %s\n", a.Kind, a.Path)
			}
			artifacts = append(artifacts, charts...)
		}
		mp, err := report.WriteManifest(outDir, report.NewManifest(res, artifacts))
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote manifest to %s\n", mp)
		printWarnings(res.Warnings)
		return nil
	},
}

func printWarnings(ws []string) {
	for _, w := range ws {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputDir, "output-dir", "o", "", "directory for report.md/report.json, charts and manifest.yaml (default: stdout)")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "report format: markdown|json")
	analyzeCmd.Flags().BoolVar(&anaNoCharts, "no-charts", false, "skip PNG chart rendering")
	analyzeCmd.Flags().StringSliceVar(&anaRegimens, "regimens", nil, "regimens for the final-volume outlier analysis (empty means all)")
	analyzeCmd.Flags().StringVar(&anaFocusRegimen, "focus-regimen", "", "regimen for the subject time series and weight/volume regression")
	analyzeCmd.Flags().StringVar(&anaSubject, "subject", "", "subject id for the time series")
	analyzeCmd.Flags().IntVar(&anaWidth, "width", 0, "chart width in pixels")
	analyzeCmd.Flags().IntVar(&anaHeight, "height", 0, "chart height in pixels")
	addInputFlags(analyzeCmd)
}
