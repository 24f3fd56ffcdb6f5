package cmd

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func repairCmd() *cobra.Command {
	var batch int

	command := &cobra.Command{
		Use:   "repair",
		Short: "resync cached copies and rebuild the back link index",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := localApp()
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Engine.Repair(cmdContext(), batch, app.Schema)
			if report != nil {
				table := tablewriter.NewWriter(os.Stdout)
				table.SetHeader([]string{"Checked", "Resynced", "Dropped", "Swept", "Linked"})
				table.Append([]string{
					strconv.FormatInt(report.Checked, 10),
					strconv.FormatInt(report.Resynced, 10),
					strconv.FormatInt(report.Dropped, 10),
					strconv.FormatInt(report.Swept, 10),
					strconv.FormatInt(report.Linked, 10),
				})
				table.Render()
			}
			return err
		},
	}

	command.Flags().IntVarP(&batch, "batch", "b", 500, "back links read per page")

	return command
}
