// Package cmd holds the authpilot command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shandysiswandi/authpilot/internal/app"
	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"github.com/spf13/cobra"
)

const stopTimeout = 10 * time.Second

// application is the part of *app.App the commands use.
type application interface {
	Context() context.Context
	Authflow() authflow
	Targets() []entity.Target
	Target(name string) (entity.Target, error)
	Stop(ctx context.Context)
}

type appAdapter struct {
	*app.App
}

func (a appAdapter) Authflow() authflow {
	return a.App.Authflow()
}

type globalFlags struct {
	configPath string
	envFiles   []string
	targets    []string
}

type cli struct {
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer
	open   func(app.Options) (application, error)
}

func openApp(opts app.Options) (application, error) {
	a, err := app.New(opts)
	if err != nil {
		return nil, err
	}
	return appAdapter{a}, nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr, open: openApp}
	return c.execute(os.Args[1:])
}

func (c *cli) execute(args []string) int {
	if args == nil {
		args = []string{}
	}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	err := root.Execute()
	if err != nil {
		fmt.Fprintf(c.stderr, "authpilot: %v\n", err)
	}
	return exitCode(err)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "authpilot",
		Short: "Log in to TOTP protected portals and keep the session",
		Long: `authpilot drives a browser through a username/password + TOTP login,
retrying around code rejections and step boundaries, and stores the
authenticated session for later reuse.

Running it without a subcommand is the same as "authpilot login".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          c.runLogin,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.configPath, "config", "c", "", "YAML config file (default $CONFIG_PATH)")
	pf.StringSliceVar(&c.flags.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment")
	pf.StringSliceVarP(&c.flags.targets, "target", "t", nil, "target names to use (default all configured)")

	root.AddCommand(
		c.loginCmd(),
		c.totpCmd(),
		c.sessionCmd(),
		c.historyCmd(),
	)
	return root
}

// withApp opens the application, runs fn and stops it again.
func (c *cli) withApp(fn func(a application) error) error {
	a, err := c.open(app.Options{
		ConfigPath: c.flags.configPath,
		EnvFiles:   c.flags.envFiles,
		LogOutput:  c.stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		a.Stop(ctx)
	}()

	return fn(a)
}

// selectTargets resolves --target against the configuration.
func (c *cli) selectTargets(a application) ([]entity.Target, error) {
	if len(c.flags.targets) == 0 {
		targets := a.Targets()
		if len(targets) == 0 {
			return nil, goerror.NewInvalidConfig(nil, "targets",
				"no target configured, set BASE_URL, EPROC_USERNAME, EPROC_PASSWORD and TOTP_SECRET or a targets list")
		}
		return targets, nil
	}

	out := make([]entity.Target, 0, len(c.flags.targets))
	for _, name := range c.flags.targets {
		t, err := a.Target(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// firstTarget returns the single target a command works on.
func (c *cli) firstTarget(a application) (entity.Target, error) {
	name := ""
	if len(c.flags.targets) > 0 {
		name = c.flags.targets[0]
	}
	return a.Target(name)
}

// exitCode is 0 on success, 2 when any error is a configuration error and 1
// otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		code := 0
		for _, e := range joined.Unwrap() {
			code = max(code, exitCode(e))
		}
		if code > 0 {
			return code
		}
	}

	var ge *goerror.Error
	if errors.As(err, &ge) {
		return ge.ExitCode()
	}
	return 1
}
