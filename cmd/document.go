package cmd

import (
	"os"
	"strconv"

	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/server"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "document commands",
}

func init() {
	docCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	docCmd.AddCommand(createDocCmd())
	docCmd.AddCommand(getDocCmd())
	docCmd.AddCommand(updateDocCmd())
	docCmd.AddCommand(deleteDocCmd())
	docCmd.AddCommand(listDocCmd())
}

func toResponse(doc *model.Document) (*server.DocumentResponse, error) {
	fields, err := doc.Fields()
	if err != nil {
		return nil, err
	}
	return &server.DocumentResponse{
		Path:       doc.Path,
		Collection: doc.Collection,
		Version:    doc.Version,
		Fields:     fields,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func createDocCmd() *cobra.Command {
	var path string
	var rawFields string

	var required = []string{"path"}

	command := &cobra.Command{
		Use:     "create",
		Short:   "create a document",
		Example: `propagate doc create -p products/p1 -f '{"name": "Pen"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			fields, err := parseFields(rawFields)
			if err != nil {
				return err
			}

			var res *server.DocumentResponse
			if ServerURL != "" {
				res, err = remoteClient().ReplaceDocument(cmdContext(), path, fields)
				if err != nil {
					return err
				}
			} else {
				app, err := localApp()
				if err != nil {
					return err
				}
				defer app.Close()

				doc, err := app.Service.CreateDocument(cmdContext(), path, fields)
				if err != nil {
					return err
				}
				if res, err = toResponse(doc); err != nil {
					return err
				}
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Path", "Version"})
			table.Append([]string{res.Path, strconv.FormatInt(res.Version, 10)})
			table.Render()

			return nil
		},
	}

	command.Flags().StringVarP(&path, "path", "p", "", "document path, <collection>/<id>")
	command.Flags().StringVarP(&rawFields, "fields", "f", "", "document fields as a json object")
	bindServerFlag(command)

	return command
}

func getDocCmd() *cobra.Command {
	var path string

	var required = []string{"path"}

	command := &cobra.Command{
		Use:   "get",
		Short: "get a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			if ServerURL != "" {
				res, err := remoteClient().GetDocument(cmdContext(), path)
				if err != nil {
					return err
				}
				printJSON(res)
				return nil
			}

			app, err := localApp()
			if err != nil {
				return err
			}
			defer app.Close()

			doc, err := app.Service.GetDocument(cmdContext(), path)
			if err != nil {
				return err
			}
			res, err := toResponse(doc)
			if err != nil {
				return err
			}
			printJSON(res)

			return nil
		},
	}

	command.Flags().StringVarP(&path, "path", "p", "", "document path")
	bindServerFlag(command)

	return command
}

func updateDocCmd() *cobra.Command {
	var path string
	var rawFields string
	var replace bool

	var required = []string{"path", "fields"}

	command := &cobra.Command{
		Use:   "update",
		Short: "update a document",
		Long:  `set the given fields on a document, a null value removes the field. with --replace the document is overwritten`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			fields, err := parseFields(rawFields)
			if err != nil {
				return err
			}

			if ServerURL != "" {
				client := remoteClient()
				var res *server.DocumentResponse
				if replace {
					res, err = client.ReplaceDocument(cmdContext(), path, fields)
				} else {
					res, err = client.UpdateDocument(cmdContext(), path, fields)
				}
				if err != nil {
					return err
				}
				printJSON(res)
				return nil
			}

			app, err := localApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var doc *model.Document
			if replace {
				doc, err = app.Service.ReplaceDocument(cmdContext(), path, fields)
			} else {
				doc, err = app.Service.UpdateDocument(cmdContext(), path, fields)
			}
			if err != nil {
				return err
			}
			res, err := toResponse(doc)
			if err != nil {
				return err
			}
			printJSON(res)

			return nil
		},
	}

	command.Flags().StringVarP(&path, "path", "p", "", "document path")
	command.Flags().StringVarP(&rawFields, "fields", "f", "", "fields as a json object")
	command.Flags().BoolVarP(&replace, "replace", "r", false, "replace all fields")
	bindServerFlag(command)

	return command
}

func deleteDocCmd() *cobra.Command {
	var path string

	var required = []string{"path"}

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			if ServerURL != "" {
				if err := remoteClient().DeleteDocument(cmdContext(), path); err != nil {
					return err
				}
			} else {
				app, err := localApp()
				if err != nil {
					return err
				}
				defer app.Close()

				if err := app.Service.DeleteDocument(cmdContext(), path); err != nil {
					return err
				}
			}

			color.Green("deleted %s", path)

			return nil
		},
	}

	command.Flags().StringVarP(&path, "path", "p", "", "document path")
	bindServerFlag(command)

	return command
}

func listDocCmd() *cobra.Command {
	var collection string

	var required = []string{"collection"}

	command := &cobra.Command{
		Use:   "list",
		Short: "list the documents of a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			var docs []*server.DocumentResponse
			if ServerURL != "" {
				var err error
				docs, err = remoteClient().ListDocuments(cmdContext(), collection)
				if err != nil {
					return err
				}
			} else {
				app, err := localApp()
				if err != nil {
					return err
				}
				defer app.Close()

				list, err := app.Service.ListDocuments(cmdContext(), collection)
				if err != nil {
					return err
				}
				for _, doc := range list {
					res, err := toResponse(doc)
					if err != nil {
						return err
					}
					docs = append(docs, res)
				}
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Path", "Version", "Fields", "Updated At"})
			for _, doc := range docs {
				table.Append([]string{doc.Path, strconv.FormatInt(doc.Version, 10), strconv.Itoa(len(doc.Fields)), doc.UpdatedAt.Format("2006-01-02 15:04:05")})
			}
			table.Render()

			return nil
		},
	}

	command.Flags().StringVarP(&collection, "collection", "c", "", "collection path")
	bindServerFlag(command)

	return command
}
