// Command gallery runs the self-hosted media gallery server and its
// companion maintenance subcommands.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	root := &cobra.Command{
		Use:   "gallery",
		Short: "Self-hosted media gallery",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./gallery.toml", "path to the TOML config file")

	root.AddCommand(runServeCommand())
	root.AddCommand(runDBCommand())
	root.AddCommand(runFiletypesCommand())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("gallery exited with error")
	}
}
