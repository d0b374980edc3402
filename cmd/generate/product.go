package main

import (
	"ccdc-products-go/pkg/models"

	"github.com/spf13/cobra"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Compute a product for every pixel of a chip and persist one document per date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("product")
		cx, _ := cmd.Flags().GetInt64("cx")
		cy, _ := cmd.Flags().GetInt64("cy")
		tile, _ := cmd.Flags().GetString("tile")
		dates, _ := cmd.Flags().GetStringSlice("date")

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Service.Generate(cmd.Context(), models.GenerateRequest{
			Product: name,
			Cx:      cx,
			Cy:      cy,
			Tile:    tile,
			Dates:   dates,
		})
		if resp != nil {
			if perr := printJSON(cmd, resp); perr != nil {
				return perr
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(productCmd)
	productCmd.Flags().StringP("product", "p", "", "Product name: change | cover")
	productCmd.Flags().Int64("cx", 0, "Chip upper-left x (projected metres)")
	productCmd.Flags().Int64("cy", 0, "Chip upper-left y (projected metres)")
	productCmd.Flags().StringP("tile", "t", "", "Tile identifier used in the storage path, e.g. h05v02")
	productCmd.Flags().StringSliceP("date", "d", nil, "Query date YYYY-MM-DD (repeatable or comma separated)")
	productCmd.MarkFlagRequired("product")
	productCmd.MarkFlagRequired("tile")
	productCmd.MarkFlagRequired("date")
}
