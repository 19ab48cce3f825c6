package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/curasense/triage-cli/internal/triage"
)

var (
	analyzeAge     string
	analyzeSex     string
	analyzeChronic []string
	analyzeUser    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symptom text]",
	Short: "Triage a symptom description and print the JSON response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context(), "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		resp := env.Service.Triage(cmd.Context(), triage.Request{
			Text:              strings.Join(args, " "),
			AgeRange:          analyzeAge,
			Sex:               analyzeSex,
			ChronicConditions: analyzeChronic,
			UserName:          analyzeUser,
		})

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(resp), "analyze: write response")
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAge, "age", "", `age or age range, e.g. "42", "30-39", "30s"`)
	analyzeCmd.Flags().StringVar(&analyzeSex, "sex", "", "sex")
	analyzeCmd.Flags().StringSliceVar(&analyzeChronic, "chronic", nil, "chronic conditions (repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "user name echoed in the response")
	rootCmd.AddCommand(analyzeCmd)
}
