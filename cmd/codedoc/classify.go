package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/specvital/codedoc/internal/app/bootstrap"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show the wire protocol and endpoint of each configured model",
	Long: `Resolve the protocol family and endpoint of every configured model without
calling it. Models whose endpoint cannot be resolved are reported with the
configuration problem.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tFAMILY\tENDPOINT")
		for _, r := range bootstrap.ClassifyModels(cfg) {
			endpoint := r.Endpoint
			if r.Error != "" {
				endpoint = "error: " + r.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Family, endpoint)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
