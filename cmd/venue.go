package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/server"
)

var errUsage = errors.New("usage")

func newRootCommand() *cobra.Command {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:           "venue",
		Short:         "Serve the venue site API, media uploads and stored files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(configFile) == "" {
				_ = cmd.Usage()
				return errUsage
			}

			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("failed to load env file: %w", err)
			}

			log.Println("loading configuration...")
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			configureLogOutput(cfg.Log)

			log.Println("starting http server...")
			return server.StartServer(cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "config.yml", "Path to the configuration file (i.e., /etc/venue.yml)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file with credentials")

	return cmd
}

// configureLogOutput tees the standard logger into a rotating file when one is configured.
func configureLogOutput(cfg config.Log) {
	if cfg.File == "" {
		return
	}

	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}))
}

func main() {
	log.SetPrefix("venue: ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile | log.Lmsgprefix)

	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			log.Println(err)
		}
		os.Exit(1)
	}
}
