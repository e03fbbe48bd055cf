package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"postexport/config"
	"postexport/pipeline"
	"postexport/watch"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var (
		inputPath  string
		configPath string
		outputPath string
		watchMode  bool
	)

	root := &cobra.Command{
		Use:   "postexport",
		Short: "Post-process a static site export for deployment",
		Long: "Normalizes a static site export for deployment to a static host:\n" +
			"fixes extensionless HTML, rewrites intra-site links, replaces image\n" +
			"references with content-addressed responsive variants, and\n" +
			"pretty-prints the result. Repeated runs are incremental.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if outputPath != "" {
				cfg.OutputDir = outputPath
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(cfg)
			if err := p.Run(ctx, inputPath); err != nil {
				return err
			}
			if !watchMode {
				return nil
			}

			w, err := watch.New(inputPath, func(ctx context.Context) error {
				return p.Run(ctx, inputPath)
			})
			if err != nil {
				return err
			}
			log.Info().Str("input", inputPath).Msg("watching for changes, press Ctrl+C to stop")
			return w.Start(ctx)
		},
	}

	root.Flags().StringVar(&inputPath, "input", "", "path to export folder or .zip")
	root.Flags().StringVar(&configPath, "config", "", "path to config YAML")
	root.Flags().StringVar(&outputPath, "output", "", "override output directory")
	root.Flags().BoolVar(&watchMode, "watch", false, "re-run when the input changes")
	root.MarkFlagRequired("input")

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("postexport failed")
	}
}
