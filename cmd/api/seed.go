package main

import (
	"errors"

	"pest-tracker-api-server/internal/database"

	"github.com/spf13/cobra"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the administrator account from ADMIN_EMAIL and ADMIN_PASSWORD",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
			return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
		}

		store, closeStore, err := openStore(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer closeStore()

		return database.SeedAdmin(cmd.Context(), store.Users, cfg.Admin)
	},
}
