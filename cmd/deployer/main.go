// Package main is the entrypoint for the deployer CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"deployer-backend/internal/app"
	"deployer-backend/internal/config"
	"deployer-backend/internal/model"
	"deployer-backend/internal/output"
	"deployer-backend/internal/pkg/logger"
	"deployer-backend/internal/runfile"
	"deployer-backend/internal/service"
)

var (
	version = "dev"
	commit  = "none"
)

// Global flags
var (
	debug      bool
	noColor    bool
	timestamps bool
	dataDir    string
)

// errRunFailed is returned after a failed run has already been reported.
var errRunFailed = errors.New("run failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "deployer",
	Short: "Build, upload and start projects on remote servers over SSH",
	Long: `deployer runs a project's deployment pipeline: local pre-deploy and
build commands, upload of the artifact over SFTP, remote post-deploy and
start commands, and an optional log tail.

Servers and projects are read from DATA_DIR (default ~/.deployer), the
same store the HTTP API edits.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&timestamps, "timestamps", false, "Prefix log lines with their time")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override DATA_DIR")

	runCmd.Flags().StringP("file", "f", "", "Run file (YAML) describing the server and project")
	runCmd.Flags().Bool("logs", false, "View logs after a successful deployment")
	_ = runCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(serveCmd, deployCmd, logsCmd, runCmd, serversCmd, projectsCmd)
}

// setup loads configuration and builds the application. CLI commands log
// warnings only unless --debug is set, so run output stays readable.
func setup() (*app.App, *output.Output, error) {
	cfg := config.LoadConfig()
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
	}
	logCfg := cfg.Logging
	logCfg.Debug = debug
	if !debug {
		logCfg.Level = "warn"
	}
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	out := output.New(os.Stdout)
	out.SetColor(!noColor)
	out.SetTimestamps(timestamps)
	return a, out, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if dataDir != "" {
			cfg.Store.DataDir = dataDir
		}
		if debug {
			cfg.Logging.Debug = true
		}
		log, err := logger.NewLogger(cfg.Logging)
		if err != nil {
			return err
		}
		defer log.Sync()

		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		return a.Serve(ctx)
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy <project-id>",
	Short: "Deploy a stored project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStored(args[0], service.RunDeploy)
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs <project-id>",
	Short: "Tail a stored project's log command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStored(args[0], service.RunViewLog)
	},
}

func runStored(projectID string, kind service.RunKind) error {
	a, out, err := setup()
	if err != nil {
		return err
	}
	defer a.Logger.Sync()

	project, err := a.Store.Project(projectID)
	if err != nil {
		return err
	}
	server, err := a.Store.Server(project.ServerID)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	return execute(ctx, a, out, kind, &project, server)
}

var runCmd = &cobra.Command{
	Use:   "run -f <run.yaml>",
	Short: "Deploy a project described in a run file",
	Long: `Deploy a server and project described in a YAML run file without
touching the store.

Examples:
  deployer run -f shop.yaml
  deployer run -f shop.yaml --logs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		withLogs, _ := cmd.Flags().GetBool("logs")

		rf, err := runfile.Load(path)
		if err != nil {
			return err
		}
		a, out, err := setup()
		if err != nil {
			return err
		}
		defer a.Logger.Sync()

		ctx, stop := signalContext()
		defer stop()

		if err := execute(ctx, a, out, service.RunDeploy, &rf.Project, rf.Server); err != nil {
			return err
		}
		if !withLogs {
			return nil
		}
		return execute(ctx, a, out, service.RunViewLog, &rf.Project, rf.Server)
	},
}

func execute(ctx context.Context, a *app.App, out *output.Output, kind service.RunKind, project *model.DeployConfig, server model.ServerConfig) error {
	out.RunStart(string(kind), project.ProjectName, server)
	start := time.Now()
	_, err := a.Deploys.Execute(ctx, kind, project, server, out.Sink())
	out.RunEnd(err, time.Since(start))
	if err != nil {
		return errRunFailed
	}
	return nil
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List stored servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, out, err := setup()
		if err != nil {
			return err
		}
		servers, err := a.Store.Servers()
		if err != nil {
			return err
		}
		out.Servers(servers)
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List stored projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, out, err := setup()
		if err != nil {
			return err
		}
		projects, err := a.Store.Projects()
		if err != nil {
			return err
		}
		out.Projects(projects)
		return nil
	},
}
