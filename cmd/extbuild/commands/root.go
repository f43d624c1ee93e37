// Package commands implements the CLI commands for the extbuild build tool.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/extbuild/internal/adapters/detector"
	"go.trai.ch/extbuild/internal/app"
	"go.trai.ch/extbuild/internal/build"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for extbuild.
type CLI struct {
	app     Application
	logger  ports.Logger
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, targetNames []string, opts app.RunOptions) error
	Watch(ctx context.Context, opts app.RunOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
	Tasks(ctx context.Context, w io.Writer) error
}

// jsonSwitcher is implemented by loggers that can emit JSON records.
type jsonSwitcher interface {
	SetJSON(enable bool)
}

// New creates a new CLI instance with the given app. When logger can switch
// to JSON records, the --json flag does so.
func New(a Application, logger ports.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:   "extbuild [task...]",
		Short: "Build, watch and package browser extensions",
		Long: "extbuild bundles extension scripts, compiles stylesheets and packages the\n" +
			"result for every browser vendor. Without a subcommand the arguments are run\n" +
			"as tasks; with no arguments the default task starts the watch service.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.Bool("json", false, "Write log records as JSON")
	flags.StringP("chdir", "C", "", "Run as if started in `dir`")
	flags.BoolP("no-cache", "n", false, "Bypass the build cache and force execution")
	flags.BoolP("quiet", "q", false, "Hide task progress and task output")
	flags.IntP("jobs", "j", 0, "Maximum number of tasks run at once (default: number of CPUs)")
	flags.StringP("output-mode", "o", "auto", "Progress display: auto, tui, linear or ci")
	flags.Bool("ci", false, "Use line-based progress output (same as --output-mode=ci)")

	c := &CLI{
		app:     a,
		logger:  logger,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRunE = c.setup
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{app.DefaultTask}
		}
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}
		return c.app.Run(cmd.Context(), args, opts)
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newTasksCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// setup applies the global flags before any command runs.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
		if l, ok := c.logger.(jsonSwitcher); ok {
			l.SetJSON(true)
		}
	}

	if dir, _ := cmd.Flags().GetString("chdir"); dir != "" {
		if err := os.Chdir(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to change directory"), "dir", dir)
		}
	}
	return nil
}

func runOptions(cmd *cobra.Command) (app.RunOptions, error) {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	quiet, _ := cmd.Flags().GetBool("quiet")
	jobs, _ := cmd.Flags().GetInt("jobs")
	modeFlag, _ := cmd.Flags().GetString("output-mode")
	if ci, _ := cmd.Flags().GetBool("ci"); ci {
		modeFlag = "ci"
	}

	mode, err := detector.ParseMode(modeFlag)
	if err != nil {
		return app.RunOptions{}, err
	}

	return app.RunOptions{
		NoCache:     noCache,
		Quiet:       quiet,
		Parallelism: jobs,
		OutputMode:  mode,
	}, nil
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
