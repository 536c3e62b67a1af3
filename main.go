package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/launchdarkly/sample-site-tests/config"
	"github.com/launchdarkly/sample-site-tests/framework"
	"github.com/launchdarkly/sample-site-tests/sitetests"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var errTestsFailed = errors.New("some tests failed")

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "sample-site-tests: %s\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sample-site-tests",
		Short:         "Deploys a sample site and checks its localized responses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.AddCommand(newRunCommand(out))
	cmd.AddCommand(newVersionCommand(out))
	return cmd
}

func newRunCommand(out io.Writer) *cobra.Command {
	var params commandParams
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the site tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTests(ctx, params, out)
		},
	}
	params.bind(cmd)
	return cmd
}

func newVersionCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "sample-site-tests %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func runTests(ctx context.Context, params commandParams, out io.Writer) error {
	cfg, err := config.Load(params.configPath)
	if err != nil {
		return err
	}
	cases := sitetests.DefaultCases()
	if params.casesPath != "" {
		if cases, err = sitetests.LoadCases(params.casesPath); err != nil {
			return err
		}
	}

	env := sitetests.Environment{Config: cfg, Context: ctx}
	if params.debugAll {
		env.Logger = log.New(out, "", log.LstdFlags)
	}

	fmt.Fprintln(out)
	framework.PrintFilterDescription(out, params.filters)
	fmt.Fprintf(out, "Running %d case(s) against %s\n", len(cases), cfg.Site.ApplicationPath)

	testLogger := framework.ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
		Out:                  out,
	}
	results, err := sitetests.RunTestSuite(env, cases, params.filters.AsFilter, testLogger)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	framework.PrintResults(out, results)
	if !results.OK() {
		return errTestsFailed
	}
	return nil
}
