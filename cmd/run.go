package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gitlab.com/coderunner.net/internal/core/services/execution"
	"gitlab.com/coderunner.net/internal/core/services/supervisor"
)

// errNotPassed makes the process exit 1 without printing an error.
var errNotPassed = errors.New("verdict not passed")

var runFlags struct {
	language string
	timeout  float64
	memory   int
	cpu      float64
}

var runCmd = &cobra.Command{
	Use:   "run [flags] FILE",
	Short: "Execute one program locally and print its verdict",
	Long: `Run executes FILE (or standard input when FILE is "-") with the configured
sandbox backend and prints the verdict as JSON. The exit status is 0 only
when the program passed.`,
	Args: cobra.ExactArgs(1),
	RunE: runOnce,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.language, "language", "l", execution.DefaultLanguage, "language id")
	f.Float64VarP(&runFlags.timeout, "timeout", "t", 0, "wall-clock limit in seconds (0 = language default)")
	f.IntVarP(&runFlags.memory, "memory", "m", 0, "memory limit in MB (0 = default)")
	f.Float64Var(&runFlags.cpu, "cpu", 0, "CPU limit in cores (0 = default)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	code, err := readSource(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	sysCfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry, err := setupRegistry(ctx, sysCfg, logger)
	if err != nil {
		return err
	}
	hintClassifier, err := setupClassifier(sysCfg.RegistryConfig)
	if err != nil {
		return err
	}
	launcher, closeLauncher, err := setupLauncher(ctx, sysCfg.RunnerConfig, registry, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeLauncher() }()

	req := execution.SubmitRequest{
		JobID:    "cli-" + uuid.NewString(),
		Code:     code,
		Language: runFlags.language,
	}
	if cmd.Flags().Changed("timeout") {
		req.Timeout = &runFlags.timeout
	}
	if cmd.Flags().Changed("memory") {
		req.MemoryLimit = &runFlags.memory
	}
	if cmd.Flags().Changed("cpu") {
		req.CPULimit = &runFlags.cpu
	}
	execReq, _, err := execution.Validate(req, registry, sysCfg.LimitsConfig)
	if err != nil {
		return err
	}

	sup := supervisor.NewSupervisor(launcher, logger, sysCfg.RunnerConfig.OutputLimitBytes, sysCfg.RunnerConfig.KillGrace)
	execSvc := execution.NewExecutionService(registry, sup, hintClassifier, nil, nil, sysCfg.LimitsConfig, logger)
	verdict, err := execSvc.Execute(ctx, execReq)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(verdict); err != nil {
		return err
	}
	if !verdict.Passed {
		return errNotPassed
	}
	return nil
}

func readSource(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(raw), nil
}
