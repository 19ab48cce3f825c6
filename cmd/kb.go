package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curasense/triage-cli/internal/kb"
	"github.com/curasense/triage-cli/internal/model"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Knowledge base maintenance",
}

var kbValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a knowledge base file for data-quality issues",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, path, err := loadKBRecords(args)
		if err != nil {
			return err
		}
		return reportIssues(cmd.OutOrStdout(), path, records)
	},
}

var kbImportCmd = &cobra.Command{
	Use:   "import <source> <out.json>",
	Short: "Convert a spreadsheet or YAML knowledge base to JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertKB(cmd.OutOrStdout(), args[0], args[1], kb.WriteJSON)
	},
}

var kbExportCmd = &cobra.Command{
	Use:   "export <source> <out.xlsx>",
	Short: "Write a knowledge base to a spreadsheet for editing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertKB(cmd.OutOrStdout(), args[0], args[1], kb.WriteXLSX)
	},
}

func loadKBRecords(args []string) ([]model.ConditionRecord, string, error) {
	if len(args) == 1 {
		records, err := kb.LoadFile(args[0])
		return records, args[0], err
	}
	paths := cfg.KB.Paths
	if len(paths) == 0 {
		paths = kb.DefaultPaths
	}
	return kb.Load(paths...)
}

// reportIssues prints validation findings and fails when any is an error.
func reportIssues(w io.Writer, path string, records []model.ConditionRecord) error {
	issues := kb.Validate(records)
	errCount := 0
	for _, is := range issues {
		if is.Level == kb.IssueError {
			errCount++
		}
		fmt.Fprintf(w, "%-7s record %d (%s): %s\n", is.Level, is.Record, is.Name, is.Message)
	}
	fmt.Fprintf(w, "%s: %d conditions, %d issues (%d errors)\n", path, len(records), len(issues), errCount)
	if errCount > 0 {
		return eris.Errorf("kb: %d validation errors in %s", errCount, path)
	}
	return nil
}

func convertKB(w io.Writer, src, dst string, write func(string, []model.ConditionRecord) error) error {
	records, err := kb.LoadFile(src)
	if err != nil {
		return err
	}
	if err := write(dst, records); err != nil {
		return err
	}
	zap.L().Info("knowledge base converted",
		zap.String("source", src),
		zap.String("dest", dst),
		zap.Int("conditions", len(records)),
	)
	fmt.Fprintf(w, "wrote %d conditions to %s\n", len(records), dst)
	return nil
}

func init() {
	kbCmd.AddCommand(kbValidateCmd, kbImportCmd, kbExportCmd)
	rootCmd.AddCommand(kbCmd)
}
