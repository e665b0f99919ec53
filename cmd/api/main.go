package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"newsletter-backend/internal/app"
	"newsletter-backend/internal/httpserver"
)

func main() {
	cliApp := &cli.App{
		Name:  "newsletter",
		Usage: "Newsletter admin backend",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dotenv",
				Usage: "Load a .env file from the working directory",
				Value: true,
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
		},
		DefaultCommand: "serve",
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("application failed")
		os.Exit(1)
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply database migrations before serving",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			runtime, err := app.Build(c.Context, app.Options{
				LoadDotEnv:    c.Bool("dotenv"),
				RunMigrations: c.Bool("migrate"),
			})
			if err != nil {
				return err
			}
			defer runtime.Close()

			return httpserver.Serve(c.Context, runtime.Logger, runtime.Settings.Addr(), runtime.Handler)
		},
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and exit",
		Action: func(c *cli.Context) error {
			return app.Migrate(c.Context, c.Bool("dotenv"))
		},
	}
}
