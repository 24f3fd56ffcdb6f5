package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/emrgen/propagate"
	"github.com/emrgen/propagate/internal/config"
	"github.com/emrgen/propagate/internal/server"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ServerURL points the commands at a running service instead of the local database.
var ServerURL string

func bindServerFlag(command *cobra.Command) {
	command.Flags().StringVarP(&ServerURL, "server", "s", "", "url of a running propagate service")
}

// localApp wires the service against the configured database. Changes are dispatched
// inline regardless of QUEUE.
func localApp() (*server.App, error) {
	cnf := config.LoadConfig()
	cnf.Queue = "none"
	return server.NewApp(cnf)
}

func remoteClient() propagate.Client {
	return propagate.NewClient(ServerURL)
}

func parseFields(raw string) (map[string]any, error) {
	fields := make(map[string]any)
	if raw == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("fields must be a json object: %w", err)
	}
	return fields, nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Error(err)
		return
	}
	fmt.Println(string(data))
}

func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			provided := strings.Join(providedFlags, " ")
			color.Green("provide: %s\n", provided)
		}

		cmd.Println("")

		_ = cmd.Usage()

		return true
	}

	return false
}

func cmdContext() context.Context {
	return context.Background()
}
