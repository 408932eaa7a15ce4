package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/repovault/internal/app"
	"github.com/tildaslashalef/repovault/internal/sync"
	"github.com/tildaslashalef/repovault/internal/utils"
)

// SyncCommand returns the CLI command for syncing the vault
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror the configured repository into the local vault",
		Description: "Fetches the remote file tree, compares it against the last synced " +
			"state, and downloads added or modified files into the vault. Files deleted " +
			"remotely are removed locally; files you created yourself are never touched.",
		Action: func(c *cli.Context) error {
			return runSync(c, sync.RunTypeManual)
		},
		Subcommands: []*cli.Command{
			syncStatusCommand(),
			syncConfigCommand(),
			syncHistoryCommand(),
		},
	}
}

// runSync executes one sync run and renders its outcome
func runSync(c *cli.Context, runType sync.RunType) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if application.Sync == nil {
		utils.PrintError("No vault path configured")
		utils.PrintInfo("Set " + color.CyanString("REPOVAULT_VAULT_PATH") + " in " +
			color.CyanString("~/.repovault/.env"))
		return fmt.Errorf("vault path not configured")
	}

	utils.PrintHeading("Syncing vault")
	utils.PrintInfo(fmt.Sprintf("Repository: %s",
		color.YellowString("%s/%s @ %s",
			application.Config.GitHub.Owner,
			application.Config.GitHub.Repo,
			application.Config.GitHub.Branch)))

	result := application.Sync.Run(c.Context, runType)

	if !result.Success {
		utils.PrintError(fmt.Sprintf("Sync failed (%s): %s", result.ErrorType, result.ErrorMessage))
		return fmt.Errorf("sync failed: %s", result.ErrorMessage)
	}

	if err := application.Settings.RecordLastRun(c.Context, result.CompletedAt); err != nil {
		utils.PrintWarning(fmt.Sprintf("Failed to record last run time: %s", err))
	}

	if result.TotalChanged() == 0 && len(result.Errors) == 0 {
		utils.PrintSuccess("Vault is already up to date")
		return nil
	}

	utils.PrintSuccess(fmt.Sprintf("Sync completed in %s", utils.FormatDuration(result.Duration())))
	utils.PrintKeyValue("Added", strconv.Itoa(result.FilesAdded))
	utils.PrintKeyValue("Modified", strconv.Itoa(result.FilesModified))
	utils.PrintKeyValue("Deleted", strconv.Itoa(result.FilesDeleted))

	if len(result.Errors) > 0 {
		utils.PrintWarning(fmt.Sprintf("%d file(s) failed:", len(result.Errors)))
		rows := make([][]string, 0, len(result.Errors))
		for _, fe := range result.Errors {
			rows = append(rows, []string{fe.Path, utils.TruncateString(fe.Message, 70)})
		}
		utils.PrintTable([]string{"Path", "Error"}, rows)
	}

	return nil
}

// syncStatusCommand reports configuration, reachability and quota
func syncStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show sync configuration, connectivity and API quota",
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}
			cfg := application.Config

			utils.PrintHeading("Sync status")

			if !cfg.IsRepoConfigured() {
				utils.PrintWarning("Repository is not configured")
				utils.PrintInfo("Run " + color.CyanString("repovault sync config --repo owner/name --token <token>"))
				return nil
			}

			utils.PrintKeyValue("Repository", fmt.Sprintf("%s/%s", cfg.GitHub.Owner, cfg.GitHub.Repo))
			utils.PrintKeyValue("Branch", cfg.GitHub.Branch)
			utils.PrintKeyValue("Vault", cfg.Vault.Path)
			utils.PrintKeyValue("Auto sync", strconv.FormatBool(cfg.Vault.AutoSync))

			if application.Sync != nil && application.Sync.IsSyncing() {
				utils.PrintInfo("A sync is currently running")
			}

			lastRun, err := application.Settings.LastRun(c.Context)
			if err == nil {
				utils.PrintKeyValue("Last sync", utils.FormatRelativeTime(lastRun))
			}

			if application.Client.TestReachability(c.Context) {
				utils.PrintSuccess("Repository is reachable")
			} else {
				utils.PrintError("Repository is not reachable with the current settings")
			}

			quota := application.Client.QuotaStatus(c.Context)
			if quota.Limit > 0 {
				utils.PrintKeyValue("API quota",
					fmt.Sprintf("%d/%d remaining, resets %s",
						quota.Remaining, quota.Limit,
						quota.ResetAt.Local().Format(time.Kitchen)))
			}

			return nil
		},
	}
}

// syncConfigCommand shows or updates the persisted sync settings
func syncConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or update sync settings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "repo",
				Usage: "Repository to mirror, as owner/name or a GitHub URL",
			},
			&cli.StringFlag{
				Name:  "branch",
				Usage: "Branch to sync from",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Personal access token",
			},
			&cli.StringFlag{
				Name:  "auto-sync",
				Usage: "Enable or disable sync on startup (true/false)",
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			changed := false

			if repo := c.String("repo"); repo != "" {
				if err := application.Settings.SetRepo(c.Context, repo); err != nil {
					utils.PrintError(fmt.Sprintf("Invalid repository: %s", err))
					return err
				}
				utils.PrintSuccess("Repository updated")
				changed = true
			}

			if branch := c.String("branch"); branch != "" {
				if err := application.Settings.SetBranch(c.Context, branch); err != nil {
					return err
				}
				utils.PrintSuccess("Branch updated")
				changed = true
			}

			if token := c.String("token"); token != "" {
				if err := application.Settings.SetToken(c.Context, token); err != nil {
					return err
				}
				utils.PrintSuccess("Token updated")
				changed = true
			}

			if autoSync := c.String("auto-sync"); autoSync != "" {
				enabled, err := strconv.ParseBool(autoSync)
				if err != nil {
					utils.PrintError("auto-sync must be true or false")
					return err
				}
				if err := application.Settings.SetAutoSync(c.Context, enabled); err != nil {
					return err
				}
				utils.PrintSuccess("Auto sync updated")
				changed = true
			}

			if changed {
				return nil
			}

			cfg := application.Config
			utils.PrintHeading("Sync configuration")
			utils.PrintKeyValue("Repository", fmt.Sprintf("%s/%s", cfg.GitHub.Owner, cfg.GitHub.Repo))
			utils.PrintKeyValue("Branch", cfg.GitHub.Branch)
			token := "not set"
			if cfg.GitHub.Token != "" {
				token = "set"
			}
			utils.PrintKeyValue("Token", token)
			utils.PrintKeyValue("Vault", cfg.Vault.Path)
			utils.PrintKeyValue("State file", cfg.Vault.StateFile)
			utils.PrintKeyValue("Auto sync", strconv.FormatBool(cfg.Vault.AutoSync))
			return nil
		},
	}
}

// syncHistoryCommand lists recent sync runs
func syncHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of runs to show",
				Value:   10,
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			runs, err := application.SyncRuns.GetSyncRuns(c.Context, c.Int("limit"), 0)
			if err != nil {
				return fmt.Errorf("failed to load sync history: %w", err)
			}
			if len(runs) == 0 {
				utils.PrintInfo("No sync runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := utils.Theme.Success.Sprint("ok")
				if !run.Success {
					status = utils.Theme.Error.Sprint(string(run.ErrorType))
				}
				rows = append(rows, []string{
					run.CompletedAt.Local().Format("2006-01-02 15:04"),
					string(run.RunType),
					status,
					strconv.Itoa(run.FilesAdded),
					strconv.Itoa(run.FilesModified),
					strconv.Itoa(run.FilesDeleted),
					strconv.Itoa(run.FilesFailed),
					utils.FormatDuration(run.CompletedAt.Sub(run.StartedAt)),
				})
			}

			utils.PrintHeading("Sync history")
			utils.PrintTable(
				[]string{"Completed", "Type", "Status", "Added", "Modified", "Deleted", "Failed", "Duration"},
				rows,
			)
			return nil
		},
	}
}
