package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mls-go/internal/app"
	"mls-go/internal/config"
	"mls-go/internal/mls"
	"mls-go/internal/remote"
	"mls-go/internal/tracker"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath is the --config override; empty means the environment-driven
// default.
var configPath string

// resolveConfigPath returns the --config override or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults["config_path"], nil
}

// loadConfig reads the config file from its default (or overridden) location.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no config file at %s (run `mls config init` first)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(quiet bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, app.Options{Passphrase: promptPassphrase, Quiet: quiet})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// promptNewPassphrase reads a passphrase twice and requires both entries to
// match.
func promptNewPassphrase() (string, error) {
	first, err := promptPassphrase()
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}

	fmt.Fprint(os.Stderr, "Confirm passphrase: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if string(b) != first {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

var rootCmd = &cobra.Command{
	Use:   "mls",
	Short: "Media library sync tool",
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync [ROOT]",
	Short: "Upload new media files to a remote",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		remoteName, _ := cmd.Flags().GetString("remote")
		useTUI, _ := cmd.Flags().GetBool("tui")
		noAutosave, _ := cmd.Flags().GetBool("no-autosave")

		root := ""
		if len(args) > 0 {
			root = args[0]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if noAutosave {
			off := false
			cfg.Tracker.Autosave = &off
		} else if cmd.Flags().Changed("autosave") {
			on, _ := cmd.Flags().GetBool("autosave")
			cfg.Tracker.Autosave = &on
		}

		a, err := app.NewApp(cfg, app.Options{Passphrase: promptPassphrase, Quiet: useTUI})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			// A second interrupt falls through to the default handler and
			// kills the process.
			stop()
		}()

		// Dry runs skip remote validation so they stay fully offline.
		if err := a.ConnectRemote(ctx, remoteName, !dryRun); err != nil {
			return err
		}

		if useTUI {
			return runSyncTUI(ctx, a, root, dryRun)
		}

		onProgress := func(p mls.Progress) {
			label := string(p.Outcome)
			if p.Simulated {
				label = "would upload"
			}
			fmt.Printf("[%d/%d] %-12s %s", p.Index, p.Total, label, p.File.RelPath)
			if p.Outcome == mls.OutcomeFailed && p.Detail != "" {
				fmt.Printf(": %s", p.Detail)
			}
			fmt.Println()
		}

		summary, err := a.Sync(ctx, root, dryRun, onProgress)
		if summary != nil {
			printSummary(summary)
		}
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		return nil
	},
}

func printSummary(s *mls.RunSummary) {
	fmt.Printf("\n%s: %d file(s), %d uploaded, %d skipped, %d failed, %d cancelled in %s\n",
		s.State, s.Total, s.Uploaded, s.Skipped, s.Failed, s.Cancelled, s.Elapsed.Round(time.Millisecond))
	if s.DryRun {
		fmt.Println("Dry run: nothing was uploaded or recorded.")
	}
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [ROOT]",
	Short: "List media files that would be considered for upload",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ""
		if len(args) > 0 {
			root = args[0]
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Scan(root)
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Println("No media files found.")
			return nil
		}

		var total uint64
		for _, f := range files {
			total += uint64(f.Size)
			fmt.Printf("%10s  %s\n", humanize.Bytes(uint64(f.Size)), f.RelPath)
		}
		fmt.Printf("\n%d file(s), %s\n", len(files), humanize.Bytes(total))
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status [ROOT]",
	Short: "Show per-file sync state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ""
		if len(args) > 0 {
			root = args[0]
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.Status(root)
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			fmt.Println("No media files found.")
			return nil
		}

		var uploaded, pending, failed int
		for _, s := range statuses {
			var indicator string
			switch {
			case !s.Tracked:
				indicator = "P"
				pending++
			case s.Status == mls.StatusUploaded:
				indicator = "U"
				uploaded++
			case s.Status == mls.StatusFailed:
				indicator = "F"
				failed++
			default:
				indicator = "?"
				pending++
			}
			fmt.Printf("%s  %s\n", indicator, s.File.RelPath)
		}

		fmt.Printf("\n%d uploaded, %d pending, %d failed (%d total)\n",
			uploaded, pending, failed, len(statuses))
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			dry := ""
			if r.DryRun {
				dry = "  [dry-run]"
			}
			fmt.Printf("%.8s  %s  %-10s  %3d up %3d skip %3d fail %3d canc  %s%s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.State,
				r.Uploaded, r.Skipped, r.Failed, r.Cancelled,
				r.Root,
				dry,
			)
			if r.Detail != "" {
				fmt.Printf("          %s\n", r.Detail)
			}
		}
		return nil
	},
}

// tracker command
var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Manage the upload tracker database",
}

var trackerExportCmd = &cobra.Command{
	Use:   "export DEST",
	Short: "Write a copy of the tracker database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if args[0] == "-" {
			return a.ExportTracker(os.Stdout)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()

		if err := a.ExportTracker(f); err != nil {
			return fmt.Errorf("exporting tracker: %w", err)
		}
		fmt.Printf("Exported %d record(s) to %s\n", a.TrackerLen(), args[0])
		return nil
	},
}

// trackerResetCmd deliberately avoids newApp: reset must work on a tracker
// file too corrupt to load.
var trackerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Back up and empty the tracker database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		backup, err := tracker.Reset(cfg.Tracker.Path)
		if err != nil {
			return fmt.Errorf("resetting tracker: %w", err)
		}

		if backup != "" {
			fmt.Printf("Tracker reset. Previous database saved to %s\n", backup)
		} else {
			fmt.Println("Tracker reset.")
		}
		return nil
	},
}

var trackerPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the tracker database location",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg.Tracker.Path)
		return nil
	},
}

// auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage remote credentials",
}

var authEncryptCmd = &cobra.Command{
	Use:   "encrypt HEADERS_FILE",
	Short: "Encrypt a plain headers file with a passphrase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := promptNewPassphrase()
		if err != nil {
			return err
		}

		out, err := remote.EncryptHeaders(args[0], pass)
		if err != nil {
			return fmt.Errorf("encrypting headers: %w", err)
		}

		fmt.Printf("Encrypted headers written to %s\n", out)
		fmt.Printf("Point headers_path at it and delete %s when ready.\n", args[0])
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Add a [[remotes]] section before running sync.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Library Root: %s\n", cfg.LibraryRoot)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Tracker:      %s (autosave: %v)\n", cfg.Tracker.Path, cfg.Tracker.AutosaveEnabled())
		fmt.Printf("History:      %s\n", cfg.History.Type)
		if len(cfg.Scan.Extensions) > 0 {
			fmt.Printf("Extensions:   %v\n", cfg.Scan.Extensions)
		}
		for _, rc := range cfg.Remotes {
			fmt.Printf("Remote:       %s (%s)\n", rc.Name, rc.Type)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file")

	// sync flags
	syncCmd.Flags().BoolP("dry-run", "n", false, "Report what would be uploaded without uploading")
	syncCmd.Flags().String("remote", "", "Name of the configured remote to use (default: first)")
	syncCmd.Flags().Bool("tui", false, "Show interactive progress")
	syncCmd.Flags().Bool("autosave", false, "Persist tracker state after every file")
	syncCmd.Flags().Bool("no-autosave", false, "Persist tracker state only at the end of the run")

	// history flags
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	// tracker subcommands
	trackerCmd.AddCommand(trackerExportCmd)
	trackerCmd.AddCommand(trackerResetCmd)
	trackerCmd.AddCommand(trackerPathCmd)

	// auth subcommands
	authCmd.AddCommand(authEncryptCmd)

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(trackerCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(configCmd)
}
