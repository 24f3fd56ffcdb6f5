package cmd

import (
	"os"
	"strings"

	"github.com/emrgen/propagate/internal/server"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "back link commands",
}

func init() {
	linksCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	linksCmd.AddCommand(listLinksCmd())
}

func listLinksCmd() *cobra.Command {
	var path string

	var required = []string{"path"}

	command := &cobra.Command{
		Use:   "list",
		Short: "list the documents caching a copy of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			var links []*server.BackLinkResponse
			if ServerURL != "" {
				var err error
				links, err = remoteClient().ListBackLinks(cmdContext(), path)
				if err != nil {
					return err
				}
			} else {
				app, err := localApp()
				if err != nil {
					return err
				}
				defer app.Close()

				list, err := app.Service.ListBackLinks(cmdContext(), path)
				if err != nil {
					return err
				}
				for _, l := range list {
					tracked, err := l.Tracked()
					if err != nil {
						return err
					}
					links = append(links, &server.BackLinkResponse{
						TargetPath:    l.TargetPath,
						ReferrerPath:  l.ReferrerPath,
						FieldName:     l.FieldName,
						TrackedFields: tracked,
					})
				}
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Referrer", "Field", "Tracked Fields"})
			for _, l := range links {
				table.Append([]string{l.ReferrerPath, l.FieldName, strings.Join(l.TrackedFields, ", ")})
			}
			table.Render()

			return nil
		},
	}

	command.Flags().StringVarP(&path, "path", "p", "", "target document path")
	bindServerFlag(command)

	return command
}
