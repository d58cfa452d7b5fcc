package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/compozy/storagectl/cli/cmd"
	cachecmd "github.com/compozy/storagectl/cli/cmd/cache"
	configcmd "github.com/compozy/storagectl/cli/cmd/config"
	"github.com/compozy/storagectl/cli/cmd/data"
	"github.com/compozy/storagectl/cli/cmd/serve"
	versioncmd "github.com/compozy/storagectl/cli/cmd/version"
	"github.com/compozy/storagectl/cli/helpers"
	"github.com/compozy/storagectl/cli/tui/components"
	"github.com/compozy/storagectl/engine/paths"
	"github.com/compozy/storagectl/engine/storage"
	"github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	flagAppDataDir = "app-data-dir"
	flagEnvFile    = "env-file"
	flagShowHidden = "show-hidden"
	lockFileName   = ".storagectl.lock"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storagectl",
		Short: "Manage where application data lives",
		Long: `storagectl locates, validates, relocates, exports and imports the
application data tree, and keeps the auxiliary caches in check.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setupService,
		PersistentPostRunE: closeService,
	}

	flags := root.PersistentFlags()
	flags.String(helpers.FlagFormat, string(helpers.OutputFormatAuto), "Output format (auto, json, yaml, tui)")
	flags.String(helpers.FlagConfigFile, "", "Path to the storage config file")
	flags.String(helpers.FlagAppName, helpers.DefaultAppName, "Application name used for the default data directory")
	flags.String(flagAppDataDir, "", "Override the application data directory")
	flags.String(flagEnvFile, "", "Load environment overrides (STORAGECTL_*) from this .env file")
	flags.Bool(flagShowHidden, false, "List dot-directories in the interactive directory picker")
	flags.String(helpers.FlagLogLevel, string(logger.InfoLevel), "Log level (debug, info, warn, error, disabled)")
	flags.Bool(helpers.FlagLogJSON, false, "Output logs in JSON format")
	flags.Bool(helpers.FlagLogSource, false, "Include source code location in logs")

	root.AddCommand(data.Commands()...)
	root.AddCommand(
		cachecmd.NewCacheCommand(),
		configcmd.NewConfigCommand(),
		serve.NewServeCommand(),
		versioncmd.NewVersionCommand(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := RootCmd()
	err := root.Execute()
	if err == nil {
		return 0
	}
	var reported *cmd.ReportedError
	if !errors.As(err, &reported) {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return 1
}

func platformFromFlags(c *cobra.Command) (paths.Platform, error) {
	dir, err := c.Flags().GetString(flagAppDataDir)
	if err != nil {
		return paths.Platform{}, fmt.Errorf("failed to get %s flag: %w", flagAppDataDir, err)
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return paths.Platform{}, fmt.Errorf("invalid %s: %w", flagAppDataDir, err)
		}
		return paths.Platform{AppDataDir: abs}, nil
	}
	appName, err := c.Flags().GetString(helpers.FlagAppName)
	if err != nil {
		return paths.Platform{}, fmt.Errorf("failed to get %s flag: %w", helpers.FlagAppName, err)
	}
	return paths.DefaultPlatform(appName), nil
}

func configFileFromFlags(c *cobra.Command, platform paths.Platform) (string, error) {
	file, err := c.Flags().GetString(helpers.FlagConfigFile)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", helpers.FlagConfigFile, err)
	}
	if file == "" {
		return platform.ConfigFile(), nil
	}
	return filepath.Abs(file)
}

// loadEnvFile applies --env-file before the config store reads the environment.
func loadEnvFile(c *cobra.Command) error {
	file, err := c.Flags().GetString(flagEnvFile)
	if err != nil {
		return fmt.Errorf("failed to get %s flag: %w", flagEnvFile, err)
	}
	if file == "" {
		return nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if err := godotenv.Load(abs); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", abs, err)
	}
	return nil
}

// newPicker opens the directory picker at the current data directory.
func newPicker(c *cobra.Command, basePath string) (*components.DirPicker, error) {
	showHidden, err := c.Flags().GetBool(flagShowHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s flag: %w", flagShowHidden, err)
	}
	return components.NewDirPicker(
		components.WithTitle("Select a data directory"),
		components.WithStartDir(basePath),
		components.WithHidden(showHidden),
	), nil
}

// setupService installs the logger, the config store and the storage service in the command context.
func setupService(c *cobra.Command, _ []string) error {
	logLevel, logJSON, logSource, err := logger.GetLoggerConfig(c)
	if err != nil {
		return err
	}
	log := logger.SetupLogger(logLevel, logJSON, logSource)
	ctx := logger.ContextWithLogger(c.Context(), log)

	if err := loadEnvFile(c); err != nil {
		return err
	}
	platform, err := platformFromFlags(c)
	if err != nil {
		return err
	}
	file, err := configFileFromFlags(c, platform)
	if err != nil {
		return err
	}
	fsys := afero.NewOsFs()
	store := config.NewStore(file, config.WithFs(fsys))
	store.Load(ctx)
	picker, err := newPicker(c, paths.NewResolver(store, fsys, platform).BasePath())
	if err != nil {
		return err
	}
	svc := storage.NewService(fsys, store, platform,
		storage.WithPicker(picker),
		storage.WithProcessLock(filepath.Join(platform.AppDataDir, lockFileName), storage.DefaultLockTimeout),
	)
	log.Debug("storage service ready", "config_file", file, "app_data_dir", platform.AppDataDir)

	ctx = config.ContextWithStore(ctx, store)
	ctx = cmd.ContextWithService(ctx, svc)
	c.SetContext(ctx)
	return nil
}

func closeService(c *cobra.Command, _ []string) error {
	if svc := cmd.ServiceFromContext(c.Context()); svc != nil {
		svc.Close()
	}
	return nil
}
