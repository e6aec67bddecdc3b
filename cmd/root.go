// Package cmd provides the bootstrapd command-line interface.
package cmd

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/km-arc/go-bootstrap/app"
	kernel "github.com/km-arc/go-bootstrap/framework/app"
	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
)

// CLI output formatters
var (
	errorColor  = color.New(color.FgRed, color.Bold)
	headerColor = color.New(color.FgBlue, color.Bold)
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	envFiles       []string
	settingsRoots  []string
	settingsModule string
	noColor        bool

	configureFramework  bool
	configureLogging    bool
	instrumentLibraries bool
}

// NewRootCmd creates the bootstrapd command with all subcommands.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "bootstrapd",
		Short: "Bootstrap the application container and run it",
		Long: `bootstrapd builds the application container in fixed phases:
configure-framework, configure-logging, instrument-libraries and
register-services. Each of the first three can be turned off with a flag;
flags not given fall back to the BOOTSTRAP_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if o.noColor {
				color.NoColor = true
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&o.envFiles, "env-file", nil, "Env files to load (default .env)")
	pf.StringSliceVar(&o.settingsRoots, "settings-root", nil, "Directories searched for the settings module (default .)")
	pf.StringVar(&o.settingsModule, "settings", "", "Settings module, e.g. configs.app (default $APP_SETTINGS_MODULE)")
	pf.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&o.configureFramework, "configure-framework", true, "Run the configure-framework phase")
	pf.BoolVar(&o.configureLogging, "configure-logging", true, "Run the configure-logging phase")
	pf.BoolVar(&o.instrumentLibraries, "instrument-libraries", true, "Run the instrument-libraries phase")

	root.AddCommand(newServeCmd(o))
	root.AddCommand(newBindingsCmd(o))
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		errorColor.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// bootstrapContainer loads config and builds the container, letting flags
// given on the command line override the env defaults.
func bootstrapContainer(ctx context.Context, cmd *cobra.Command, o *rootOptions) (*container.Container, error) {
	cfg := config.Load(o.envFiles...)
	opts := kernel.OptionsFromConfig(cfg)

	flags := cmd.Flags()
	if flags.Changed("configure-framework") {
		opts.ConfigureFramework = o.configureFramework
	}
	if flags.Changed("configure-logging") {
		opts.ConfigureLogging = o.configureLogging
	}
	if flags.Changed("instrument-libraries") {
		opts.InstrumentLibraries = o.instrumentLibraries
	}
	if o.settingsModule != "" {
		opts.SettingsModule = o.settingsModule
	}

	f := kernel.NewContainerFactory(cfg, app.NewRegistry(cfg), kernel.WithSettingsRoots(o.settingsRoots...))
	return f.Build(ctx, opts)
}
