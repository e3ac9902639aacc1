package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tumorstat/internal/dataset"
	"github.com/KaramelBytes/tumorstat/internal/pipeline"
	"github.com/KaramelBytes/tumorstat/internal/utils"
	"github.com/spf13/cobra"
)

var cleanOut string

var cleanCmd = &cobra.Command{
	Use:   "clean [metadata results]",
	Short: "Merge the input tables and drop subjects with duplicate timepoints",
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
		cleaned, err := pipeline.Prepare(pc, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "[CLEANING]")
		fmt.Fprintf(out, "Rows: %d merged, %d kept\n", cleaned.RowsBefore, len(cleaned.Observations))
		fmt.Fprintf(out, "Subjects: %d merged, %d kept\n", cleaned.SubjectsBefore, cleaned.SubjectsAfter)
		if len(cleaned.DuplicateIDs) == 0 {
			fmt.Fprintln(out, "No duplicate (subject, timepoint) records")
		} else {
			fmt.Fprintf(out, "Excluded subjects: %s\n", strings.Join(cleaned.DuplicateIDs, ", "))
			for _, o := range cleaned.Duplicates {
				fmt.Fprintf(out, "  %s t=%d volume=%.3f sites=%d\n", o.SubjectID, o.Timepoint, o.Volume, o.MetastaticSites)
			}
		}

		if cleanOut == "" {
			return nil
		}
		var buf bytes.Buffer
		if err := dataset.WriteCSV(&buf, cleaned); err != nil {
			return err
		}
		if err := utils.EnsureDir(filepath.Dir(cleanOut)); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(cleanOut, buf.Bytes()); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote cleaned data to %s\n", cleanOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVar(&cleanOut, "out", "", "write the cleaned, merged table as CSV to this path")
	addInputFlags(cleanCmd)
}
