package main

import (
	"github.com/spf13/cobra"

	"github.com/galleryhost/gallery/internal/filetype"
)

func runFiletypesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filetypes",
		Short: "Filetype registry operations",
	}
	cmd.AddCommand(runFiletypesReloadCommand())
	return cmd
}

// runFiletypesReloadCommand validates that the seed data loads cleanly.
// There is no running-process IPC channel to push a reload into a live
// server (spec.md §4.2 does not specify one), so this is a standalone
// validation utility an operator runs before restarting the server with
// new seed data, not a live reload of a running process.
func runFiletypesReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Validate the filetype seed data loads without error",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := filetype.New()
			if err := registry.ReloadFromSeed(filetype.DefaultSeeds()); err != nil {
				return err
			}
			cmd.Println("filetype seed data loaded successfully")
			return nil
		},
	}
}
