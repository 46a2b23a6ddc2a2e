package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newRootCmd(deps mainDeps) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:          "bodytune-api",
		Short:        "BodyTune fitness backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			viper.SetConfigFile(cfgFile)
			return viper.ReadInConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(deps)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or .env)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "runs the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(deps)
		},
	})
	root.AddCommand(newMigrateCmd(deps))
	return root
}

func newMigrateCmd(deps mainDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.loadConfig()
			log, err := deps.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := deps.migrate(cfg.PostgresURL); err != nil {
				log.Error("migration failed", zap.Error(err))
				return err
			}
			log.Info("database schema is current")
			return nil
		},
	}
}
