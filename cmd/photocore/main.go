package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"photocore/internal/config"
	"photocore/internal/logging"
	"photocore/internal/vault"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openVault reads the config file and opens the facade over its
// catalog. The caller must defer v.Close().
func openVault() (*vault.Vault, error) {
	defaults, err := config.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var logger logging.Logger
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err == nil {
			f, err := os.OpenFile(filepath.Join(cfg.LogDir, "photocore.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err == nil {
				logger = logging.NewSlogLogger(slog.New(logging.NewHandler(f)), "")
			}
		}
	}

	v, err := vault.Open(cfg.CatalogPath, vault.Options{Logger: logger, Workers: cfg.WorkerPoolSize})
	if err != nil {
		return nil, err
	}

	if cfg.PackPath != "" {
		if err := v.SetPackPath(cfg.PackPath); err != nil {
			v.Close()
			return nil, fmt.Errorf("setting pack path: %w", err)
		}
	}
	for _, src := range cfg.Sources {
		if err := v.AddSource(src); err != nil {
			v.Close()
			return nil, fmt.Errorf("registering configured source %s: %w", src, err)
		}
	}

	return v, nil
}

var rootCmd = &cobra.Command{
	Use:   "photocore",
	Short: "Photo deduplication core",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := config.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Catalog path: %s\n", cfg.CatalogPath)
		return nil
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage scan sources",
}

var sourceAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Register a directory as a scan source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		if err := v.AddSource(absPath); err != nil {
			return fmt.Errorf("adding source: %w", err)
		}

		fmt.Printf("Added source: %s\n", absPath)
		return nil
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove PATH",
	Short: "Deregister a scan source and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		if err := v.RemoveSource(absPath); err != nil {
			return fmt.Errorf("removing source: %w", err)
		}

		fmt.Printf("Removed source: %s\n", absPath)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all registered sources and rebuild duplicate groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		groups, err := v.Scan(nil)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Printf("Scan complete: %d duplicate group(s)\n", len(groups))
		return nil
	},
}

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "List duplicate groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		groups, err := v.ListGroups()
		if err != nil {
			return err
		}

		if len(groups) == 0 {
			fmt.Println("No duplicate groups.")
			return nil
		}

		for _, g := range groups {
			fmt.Printf("Group #%d  confidence=%s  sot=%d  members=%v\n", g.ID, g.Confidence, g.SourceOfTruthID, g.MemberIDs)
		}
		return nil
	},
}

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Materialize the content-addressable pack",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		if err := v.Pack(nil); err != nil {
			return fmt.Errorf("pack failed: %w", err)
		}

		fmt.Println("Pack complete.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show aggregate catalog counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		s, err := v.Status()
		if err != nil {
			return err
		}

		fmt.Printf("Sources: %d\n", s.Sources)
		fmt.Printf("Photos:  %d\n", s.Photos)
		fmt.Printf("Groups:  %d\n", s.Groups)
		fmt.Printf("Reclaimable bytes: %d\n", s.DuplicateBytesWaste)
		return nil
	},
}

func init() {
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(statusCmd)
}
