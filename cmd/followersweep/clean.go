package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"followersweep/pkg/browser"
	"followersweep/pkg/cleaner"
	"followersweep/pkg/config"
	"followersweep/pkg/logger"
	"followersweep/pkg/models"
	"followersweep/pkg/ui"
)

var (
	// Clean command flags
	userID      string
	dryRun      bool
	limit       int
	dailyCap    int
	minDigits   int
	headless    bool
	yes         bool
	outputDir   string
	reportsDir  string
	backupsDir  string
	userDataDir string
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Scan a follower list and remove flagged bot accounts",
	Long: `Scan the follower list of the given X handle, flag followers whose
usernames match bot naming patterns, and remove them after confirmation.

The browser window that opens must be logged in to the account. If it is
not, followersweep waits up to the configured login timeout for you to
log in manually before aborting.

Every run writes a JSON report and a CSV export of all scanned followers.
Live runs additionally write a backup file listing removed followers.`,
	Example: `  # Preview which followers would be removed, touching nothing
  followersweep clean --user-id myhandle --dry-run

  # Remove up to 50 flagged followers without the confirmation prompt
  followersweep clean -u myhandle --limit 50 --yes

  # Flag usernames ending in 4+ digits instead of the default 3
  followersweep clean -u myhandle --min-digits 4 --dry-run`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVarP(&userID, "user-id", "u", "", "handle of the account whose followers are cleaned (required)")
	cleanCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "classify and report without removing anyone")
	cleanCmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum removals this run")
	cleanCmd.Flags().IntVar(&dailyCap, "daily-cap", 1000, "maximum removals per day")
	cleanCmd.Flags().IntVar(&minDigits, "min-digits", 3, "minimum trailing digits for a username to be flagged")
	cleanCmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a visible window")
	cleanCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cleanCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for reports and backups")
	cleanCmd.Flags().StringVar(&reportsDir, "reports-dir", "", "directory for report and CSV files")
	cleanCmd.Flags().StringVar(&backupsDir, "backups-dir", "", "directory for removed-follower backups")
	cleanCmd.Flags().StringVar(&userDataDir, "user-data-dir", "", "browser profile directory holding the X session")
	cleanCmd.MarkFlagRequired("user-id")
}

// newSession is a variable so tests can substitute a fake browser.
var newSession = func(cfg *config.Config, log logger.Logger) (browser.Session, error) {
	return browser.NewChromeSession(&cfg.Browser, cfg.Delays.AfterScroll, log)
}

func runClean(cmd *cobra.Command, args []string) error {
	handle := strings.TrimSpace(strings.TrimPrefix(userID, "@"))
	if handle == "" {
		return fmt.Errorf("user-id must not be empty")
	}

	// Build flags map from command line
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("limit") {
		flags["limit"] = limit
	}
	if cmd.Flags().Changed("daily-cap") {
		flags["daily-cap"] = dailyCap
	}
	if cmd.Flags().Changed("min-digits") {
		flags["min-digits"] = minDigits
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if outputDir != "" {
		flags["reports-dir"] = filepath.Join(outputDir, "reports")
		flags["backups-dir"] = filepath.Join(outputDir, "backups")
	}
	if reportsDir != "" {
		flags["reports-dir"] = reportsDir
	}
	if backupsDir != "" {
		flags["backups-dir"] = backupsDir
	}
	if userDataDir != "" {
		flags["user-data-dir"] = userDataDir
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("followersweep starting")

	ui.PrintBanner()
	ui.PrintInfo("Target account", "@"+handle)
	if dryRun {
		ui.PrintInfo("Mode", "dry run (no followers will be removed)")
	} else {
		ui.PrintWarning("Live mode: flagged followers WILL be removed")
	}

	// Cancel the run on Ctrl-C; a second signal kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := newSession(cfg, log)
	if err != nil {
		ui.PrintError("Failed to start browser", err.Error())
		os.Exit(1)
	}
	defer session.Close()

	c, err := cleaner.New(cfg, session, cleaner.Options{
		TargetHandle:     handle,
		DryRun:           dryRun,
		SkipConfirmation: yes,
	})
	if err != nil {
		ui.PrintError("Failed to set up cleanup run", err.Error())
		return err
	}

	result, runErr := c.Run(ctx)

	if result != nil {
		fmt.Println(ui.RenderSummary(result.State))
		if result.Artifacts != nil {
			ui.PrintInfo("Report", result.Artifacts.ReportPath)
			ui.PrintInfo("CSV export", result.Artifacts.CSVPath)
			if result.Artifacts.BackupPath != "" {
				ui.PrintInfo("Backup", result.Artifacts.BackupPath)
			}
		}
	}

	if runErr != nil {
		ui.PrintError("Cleanup run failed", runErr.Error())
		return runErr
	}

	if result != nil && result.State.Phase == models.PhaseAborted {
		ui.PrintWarning("Run ended early; see report for details")
	} else if dryRun {
		ui.PrintSuccess(fmt.Sprintf("Dry run complete: %d of %d followers flagged",
			result.State.DryRunCount, result.State.ProcessedCount))
	} else {
		ui.PrintSuccess(fmt.Sprintf("Removed %d followers", result.State.RemovedCount))
	}
	return nil
}
