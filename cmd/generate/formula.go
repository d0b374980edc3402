package main

import (
	"github.com/spf13/cobra"
)

var formulaCmd = &cobra.Command{
	Use:   "formula",
	Short: "Evaluate one change formula for every pixel of a chip",
	Long: `Evaluate one change formula for every pixel of a chip and print
[{pixelx, pixely, val}] records.

Formulas: time-of-change, time-since-change, magnitude-of-change,
length-of-segment, curve-fit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("name")
		cx, _ := cmd.Flags().GetInt64("cx")
		cy, _ := cmd.Flags().GetInt64("cy")
		date, _ := cmd.Flags().GetString("date")

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		values, err := a.Service.EvaluateFormula(cmd.Context(), name, cx, cy, date)
		if err != nil {
			return err
		}
		return printJSON(cmd, values)
	},
}

func init() {
	rootCmd.AddCommand(formulaCmd)
	formulaCmd.Flags().StringP("name", "n", "", "Formula name")
	formulaCmd.Flags().Int64("cx", 0, "Chip upper-left x (projected metres)")
	formulaCmd.Flags().Int64("cy", 0, "Chip upper-left y (projected metres)")
	formulaCmd.Flags().StringP("date", "d", "", "Query date YYYY-MM-DD")
	formulaCmd.MarkFlagRequired("name")
	formulaCmd.MarkFlagRequired("date")
}
