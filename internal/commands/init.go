package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/repovault/internal/config"
	"github.com/tildaslashalef/repovault/internal/database"
	"github.com/tildaslashalef/repovault/internal/utils"
)

// InitCommand returns the CLI command for initializing RepoVault
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize or update the RepoVault environment",
		Description: "Sets up the RepoVault environment including the configuration " +
			"directory and database. Use this command for first-time setup or to " +
			"update your database schema after upgrading RepoVault.",
		Action: func(c *cli.Context) error {
			utils.PrintHeading("Initializing RepoVault")

			homeDir, err := os.UserHomeDir()
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to get user home directory: %s", err))
				return fmt.Errorf("failed to get user home directory: %w", err)
			}

			configDir := filepath.Join(homeDir, ".repovault")
			utils.PrintInfo("Configuration directory: " + color.YellowString("%s", configDir))

			if err := os.MkdirAll(configDir, 0755); err != nil {
				utils.PrintError(fmt.Sprintf("Failed to create config directory: %s", err))
				return fmt.Errorf("failed to create config directory: %w", err)
			}

			utils.PrintInfo("Extracting default configuration file")
			configFilePath := filepath.Join(configDir, ".env")

			if err := config.SetupConfigDirectory(configDir, false); err != nil {
				utils.PrintWarning(fmt.Sprintf("Failed to set up configuration files: %s", err))
				// not critical, continue
			}

			cfg, err := config.LoadFromEnv(configDir, configFilePath)
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to load configuration: %s", err))
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			utils.PrintInfo("Initializing database...")
			if err := database.InitDB(cfg); err != nil {
				utils.PrintError(fmt.Sprintf("Failed to initialize database: %s", err))
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			utils.PrintInfo("Applying database migrations...")
			migrationsApplied, err := database.RunMigrations()
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to apply migrations: %s", err))
				return fmt.Errorf("failed to apply migrations: %w", err)
			}

			utils.PrintSuccess("RepoVault initialized successfully!")

			if migrationsApplied > 0 {
				utils.PrintSuccess(fmt.Sprintf("Applied %d new migration(s)", migrationsApplied))
			} else {
				utils.PrintInfo("Database schema is already up-to-date")
			}

			utils.PrintKeyValue("Configuration file", configFilePath)
			utils.PrintKeyValue("Database location", cfg.Database.Path)
			utils.PrintKeyValue("Log file location", cfg.Logging.Output)
			fmt.Println("")
			utils.PrintInfo("Set your repository and token in the configuration file, then run " +
				color.CyanString("repovault sync"))

			return nil
		},
	}
}
