package main

import (
	"github.com/spf13/cobra"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/database"
	"github.com/galleryhost/gallery/internal/thumbnail"
)

func runDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database operations",
	}
	cmd.AddCommand(runDBMigrateCommand())
	cmd.AddCommand(runDBSweepThumbnailsCommand())
	return cmd
}

func runDBMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := database.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()
			cmd.Println("migrations applied")
			return nil
		},
	}
}

func runDBSweepThumbnailsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-thumbnails",
		Short: "Remove thumbnail_records rows with no surviving live file, once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := database.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			store := thumbnail.NewStore(db)
			n, err := store.DeleteOrphaned(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("removed %d orphaned thumbnail record(s)\n", n)
			return nil
		},
	}
}
