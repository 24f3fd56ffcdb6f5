package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "propagate",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "keeps cached copies of linked documents in sync",
	Example: `propagate serve
propagate db migrate
propagate doc create -p products/p1 -f '{"name": "Pen", "price": 2}'
propagate doc update -p orders/o1 -f '{"products": [{"docPath": "products/p1"}]}'
propagate doc get -p orders/o1
propagate doc list -c products
propagate doc delete -p products/p1
propagate links list -p products/p1
propagate repair`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(repairCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
