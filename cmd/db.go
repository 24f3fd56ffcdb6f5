package cmd

import (
	"github.com/emrgen/propagate/internal/config"
	"github.com/emrgen/propagate/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(Migrate())
}

func Migrate() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.OpenDb(config.LoadConfig())
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := model.Migrate(db); err != nil {
				return err
			}
			logrus.Infof("database migrated")

			return nil
		},
	}

	return command
}
