package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"camcheck/internal/app"
	"camcheck/internal/camcheck"
	"camcheck/internal/config"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Check", "History").
func newApp(operation string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassphrase prompts on stderr and reads without echo from a terminal,
// or reads one line from a non-interactive stdin.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading passphrase from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "camcheck",
	Short:        "Check that phone camera files made it into the cloud backup",
	SilenceUsage: true,
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Reconcile the phone listing against the backup listing",
	Long: `Reconcile the phone listing against the backup listing.

Files are matched on size and date, allowing the backup date to be up to two
days off. A rename map from original to backup filenames is written next to the
listings. Missing files are reported, never moved or deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		latest, _ := cmd.Flags().GetBool("latest")
		phone, _ := cmd.Flags().GetString("phone")
		backup, _ := cmd.Flags().GetString("backup")

		if latest && date != "" {
			return fmt.Errorf("--date and --latest are mutually exclusive")
		}

		a, err := newApp("Check")
		if err != nil {
			return err
		}

		out, err := a.Check(app.CheckOptions{
			Date:          date,
			Latest:        latest,
			PhoneListing:  phone,
			BackupListing: backup,
		})
		if err != nil {
			a.Close()
			return err
		}

		camcheck.WriteReport(cmd.OutOrStdout(), out, a.ReportOptions())

		if err := a.Close(); err != nil {
			return fmt.Errorf("finishing check: %w", err)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No checks recorded.")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %s  phone:%d  backed-up:%d (%s)  fuzzy:%d  missing:%d\n",
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.PhoneCount,
				r.BackedUpCount,
				humanize.Bytes(uint64(r.BackedUpTotalSize)),
				r.FuzzyDateMatchCount,
				r.MissingCount,
			)
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "View one check with its missing files and archived artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetRun")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.GetRun(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Run:            %s\n", r.ID)
		fmt.Printf("Checked at:     %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Phone listing:  %s\n", r.PhoneListing)
		fmt.Printf("Backup listing: %s\n", r.BackupListing)
		fmt.Printf("Rename map:     %s\n", r.MapPath)
		fmt.Printf("Backed up:      %d of %d (%s), %d fuzzy\n",
			r.BackedUpCount, r.PhoneCount, humanize.Bytes(uint64(r.BackedUpTotalSize)), r.FuzzyDateMatchCount)
		if r.IgnoredCount > 0 || r.CollisionCount > 0 {
			fmt.Printf("Ignored:        %d, collisions: %d\n", r.IgnoredCount, r.CollisionCount)
		}
		fmt.Printf("Missing:        %d\n", r.MissingCount)
		for _, m := range r.Missing {
			fmt.Printf("  %s\n", m)
		}

		// Without a vault there is nothing archived to list.
		artifacts, err := a.RunArtifacts(r.ID)
		if err == nil && len(artifacts) > 0 {
			fmt.Println("Artifacts:")
			for _, name := range artifacts {
				fmt.Printf("  %s\n", name)
			}
		}
		return nil
	},
}

// lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup FILENAME",
	Short: "Find the original or backup name of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Lookup")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Lookup(args[0])
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No renames recorded.")
			return nil
		}

		for _, r := range records {
			fuzzy := ""
			if r.Fuzzy() {
				fuzzy = fmt.Sprintf("  [%+d days]", r.DayOffset)
			}
			fmt.Printf("%s  %s  %s -> %s  %s%s\n",
				r.RunID,
				r.CreatedAt.Local().Format("2006-01-02"),
				r.OriginalFilename,
				r.BackupFilename,
				humanize.Bytes(uint64(r.Filesize)),
				fuzzy,
			)
		}
		return nil
	},
}

// map command
var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Archived rename maps",
}

var mapShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Print the rename map archived by a check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		a, err := newApp("FetchRenameMap")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.FetchRenameMap(args[0], func() (string, error) {
			return readPassphrase("Passphrase: ")
		})
		if err != nil {
			return err
		}
		return camcheck.EncodeRenameMap(cmd.OutOrStdout(), entries, format)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(uuid.New().String(), defaults["base_dir"])

		res, err := app.InitConfig(defaults["config_path"], cfg, readNewPassphrase)
		if res != nil {
			if res.CreatedConfig {
				fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
			} else {
				fmt.Printf("Configuration already exists at %s\n", defaults["config_path"])
			}
			fmt.Printf("Device ID: %s\n", res.Config.DeviceID)
			fmt.Printf("Base Dir:  %s\n", res.Config.BaseDir)
		}
		if err != nil {
			return err
		}
		if res.CreatedKeys {
			fmt.Printf("Encryption keys written to %s\n", res.Config.Encryption.PublicKeyPath)
		}
		return nil
	},
}

// readNewPassphrase asks for a passphrase twice and requires both to match.
func readNewPassphrase() (string, error) {
	pass, err := readPassphrase("New passphrase for the archive key: ")
	if err != nil {
		return "", err
	}
	confirm, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passphrases do not match")
	}
	return pass, nil
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Device ID:    %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Listings Dir: %s\n", cfg.Listings.Dir)
		fmt.Printf("Camera Dir:   %s\n", cfg.Device.CameraDir)
		fmt.Printf("Review Dir:   %s\n", cfg.Device.ReviewDir)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:        %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ValidateVault")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(); err != nil {
			return fmt.Errorf("vault check failed: %w", err)
		}
		fmt.Println("Vault OK")
		return nil
	},
}

// index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local history database",
}

var indexRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the history database from the vault snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path, err := app.RestoreIndex(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("History database restored to %s\n", path)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)

	// map subcommands
	mapCmd.AddCommand(mapShowCmd)
	mapShowCmd.Flags().StringP("format", "f", camcheck.FormatJSON, "Output format (json or yaml)")

	// index subcommands
	indexCmd.AddCommand(indexRestoreCmd)

	// root commands
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringP("date", "d", "", "Listing date (YYYY-MM-DD, default today)")
	checkCmd.Flags().Bool("latest", false, "Use the newest date with both listings present")
	checkCmd.Flags().String("phone", "", "Phone listing path (overrides the dated name)")
	checkCmd.Flags().String("backup", "", "Backup listing path (overrides the dated name)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of checks to show")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(indexCmd)
}
