package deployer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"

	"github.com/launchdarkly/sample-site-tests/framework"
)

// outputWaitDelay bounds how long to wait for the site's output pipes to close after it
// exits, in case something it started still holds them.
const outputWaitDelay = time.Second * 2

// Launcher creates the command that runs a site. The command must not be started yet.
// The returned cleanup function, if not nil, is called after the process has exited.
type Launcher interface {
	Command(ctx context.Context, params DeploymentParameters, logger framework.Logger) (cmd *exec.Cmd, cleanup func() error, err error)
}

// ProcessDeployer runs a site as a child process.
type ProcessDeployer struct {
	Launcher Launcher
	Logger   framework.Logger
}

type processDeployment struct {
	cmd     *exec.Cmd
	baseURL string
	done    chan struct{}
	exitErr error
	cleanup func() error
	logger  framework.Logger
	stdout  *framework.LineWriter
	stderr  *framework.LineWriter
	closing sync.Once
	closed  error
}

func NewProcessDeployer(launcher Launcher, logger framework.Logger) *ProcessDeployer {
	return &ProcessDeployer{Launcher: launcher, Logger: logger}
}

func (d *ProcessDeployer) Deploy(ctx context.Context, params DeploymentParameters) (Deployment, error) {
	logger := d.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, err
	}

	cmd, cleanup, err := d.Launcher.Command(ctx, params, logger)
	if err != nil {
		return nil, err
	}
	if cleanup == nil {
		cleanup = func() error { return nil }
	}
	if params.WorkingDirectory != "" {
		cmd.Dir = params.WorkingDirectory
	}
	cmd.Env = append(os.Environ(), params.environment()...)

	p := &processDeployment{
		cmd:     cmd,
		baseURL: params.BaseURL,
		done:    make(chan struct{}),
		cleanup: cleanup,
		logger:  logger,
		stdout:  framework.NewLineWriter(logger, "[site out] "),
		stderr:  framework.NewLineWriter(logger, "[site err] "),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	startInOwnGroup(cmd)
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = outputWaitDelay
	}

	logger.Printf("Starting site (%s, %s, %s, %s) in %s: %s",
		params.ServerKind, params.RuntimeFlavor, params.RuntimeArchitecture, params.TargetFramework,
		cmd.Dir, quoteCommand(cmd.Args))
	if err := cmd.Start(); err != nil {
		_ = cleanup()
		return nil, errors.Wrapf(err, "starting %s", cmd.Path)
	}
	go p.wait()

	if err := awaitReady(ctx, p.baseURL, params.StartupTimeout, p.done); err != nil {
		if err == errExited {
			err = &ExitedError{Err: p.exitErr}
		}
		logger.Printf("Site did not start: %s", err)
		if closeErr := p.Close(); closeErr != nil {
			logger.Printf("Error while stopping site: %s", closeErr)
		}
		return nil, err
	}
	logger.Printf("Site is accepting requests at %s (pid %d)", p.baseURL, cmd.Process.Pid)
	return p, nil
}

func (p *processDeployment) wait() {
	err := p.cmd.Wait()
	p.stdout.Flush()
	p.stderr.Flush()
	p.exitErr = err
	close(p.done)
}

func (p *processDeployment) BaseURL() string {
	return p.baseURL
}

func (p *processDeployment) Done() <-chan struct{} {
	return p.done
}

func (p *processDeployment) Close() error {
	p.closing.Do(func() {
		select {
		case <-p.done:
			p.logger.Printf("Site process had already exited: %v", p.exitErr)
		default:
			p.logger.Printf("Stopping site process %d", p.cmd.Process.Pid)
		}
		// Children of the site may outlive it and keep the port, so the group is killed
		// even if the site itself has exited.
		if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.closed = errors.Wrap(err, "killing site process")
		}
		<-p.done
		if err := p.cleanup(); err != nil && p.closed == nil {
			p.closed = errors.Wrap(err, "cleaning up after site process")
		}
	})
	return p.closed
}

// CommandLauncher runs an existing executable.
type CommandLauncher struct {
	Path string
	Args []string
}

func (l CommandLauncher) Command(context.Context, DeploymentParameters, framework.Logger) (*exec.Cmd, func() error, error) {
	return exec.Command(l.Path, l.Args...), nil, nil
}

// GoLauncher builds the site's Go package into a temporary directory and runs the
// resulting binary. The binary is removed when the deployment is closed.
type GoLauncher struct {
	// GoCommand defaults to "go".
	GoCommand  string
	BuildFlags []string
	Args       []string
}

func (l GoLauncher) Command(ctx context.Context, params DeploymentParameters, logger framework.Logger) (*exec.Cmd, func() error, error) {
	pkgDir := params.ApplicationPath
	if info, err := os.Stat(pkgDir); err != nil {
		return nil, nil, errors.Wrap(err, "locating site package")
	} else if !info.IsDir() {
		pkgDir = filepath.Dir(pkgDir)
	}

	tempDir, err := os.MkdirTemp("", "site-build-")
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating build directory")
	}
	cleanup := func() error { return os.RemoveAll(tempDir) }

	binary := filepath.Join(tempDir, filepath.Base(pkgDir))
	if runtime.GOOS == "windows" {
		binary += ".exe"
	}
	goCommand := l.GoCommand
	if goCommand == "" {
		goCommand = "go"
	}
	args := append([]string{"build", "-o", binary}, l.BuildFlags...)
	args = append(args, ".")

	build := exec.CommandContext(ctx, goCommand, args...)
	build.Dir = pkgDir
	output := framework.NewLineWriter(logger, "[build] ")
	build.Stdout = output
	build.Stderr = output
	logger.Printf("Building site in %s: %s", pkgDir, quoteCommand(build.Args))
	err = build.Run()
	output.Flush()
	if err != nil {
		_ = cleanup()
		return nil, nil, errors.Wrapf(err, "building site package %s", pkgDir)
	}
	return exec.Command(binary, l.Args...), cleanup, nil
}

func quoteCommand(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, shellescape.Quote(a))
	}
	return strings.Join(quoted, " ")
}
