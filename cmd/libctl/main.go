// Command libctl runs maintenance tasks against the library database.
package main

import (
	"fmt"
	"os"

	"anoa.com/librarydesk/internal/config"
	"anoa.com/librarydesk/pkg/database"
	"anoa.com/librarydesk/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	db  *gorm.DB
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Library desk administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newCreateAdminCmd(a),
		newAuditCmd(a),
	)
	return root
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(logger.Config{Environment: cfg.AppEnv, Level: cfg.LogLevel})

	db, err := database.Connect(database.Options{
		Driver:     cfg.DBDriver,
		Host:       cfg.DBHost,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		Port:       cfg.DBPort,
		SQLitePath: cfg.SQLitePath,
		LogLevel:   gormlogger.Error,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.db = db
	return nil
}
