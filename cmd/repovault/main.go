package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/repovault/internal/app"
	"github.com/tildaslashalef/repovault/internal/commands"
	"github.com/tildaslashalef/repovault/internal/sync"
)

// Version information - populated at build time
var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
	Author     = "unknown"
	Email      = "unknown"
)

func main() {
	cliApp := &cli.App{
		Name:  "repovault",
		Usage: "One-way GitHub repository to vault synchronizer",
		Description: "RepoVault mirrors the file tree of a GitHub repository branch into a\n" +
			"local vault directory, downloading only files that changed since the last\n" +
			"sync and leaving files you created locally untouched.",
		Version: Version,
		Compiled: func() time.Time {
			t, err := time.Parse(time.RFC3339, BuildTime)
			if err != nil {
				return time.Now()
			}
			return t
		}(),
		Authors: []*cli.Author{
			{
				Name:  Author,
				Email: Email,
			},
		},
		Before: func(c *cli.Context) error {
			application, err := app.New()
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			c.App.Metadata = map[string]interface{}{
				"app": application,
			}

			return nil
		},
		After: func(c *cli.Context) error {
			if application, ok := c.App.Metadata["app"].(*app.App); ok {
				return application.Shutdown()
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.InitCommand(),
			commands.SyncCommand(),
			commands.MigrateCommand(),
		},
		Action: func(c *cli.Context) error {
			// with auto sync enabled a bare invocation runs a startup
			// sync, otherwise show help
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}
			if application.Config.Vault.AutoSync && application.Sync != nil {
				result := application.Sync.Run(c.Context, sync.RunTypeStartup)
				if !result.Success {
					return fmt.Errorf("startup sync failed: %s", result.ErrorMessage)
				}
				return nil
			}
			return cli.ShowAppHelp(c)
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
