// Package evaluator runs the external detection evaluator as a child
// process and loads the metrics summary it writes.
//
// The evaluator holds large in-memory indices; running it in its own
// process guarantees they are released when each run ends.
package evaluator

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/banshee-data/udi-dataset/internal/fsutil"
	"github.com/banshee-data/udi-dataset/internal/monitoring"
)

// MetricsFilename is the summary the evaluator writes into its output directory.
const MetricsFilename = "metrics_summary.json"

// DefaultCommand is the evaluator entry point used when none is configured.
const DefaultCommand = "python3 udi_eval.py"

// Request names the inputs of one evaluator run.
type Request struct {
	RootPath   string
	InfoPath   string
	Version    string
	ResultPath string
	EvalSet    string
	OutputDir  string
}

// Validate checks that every field is set.
func (r Request) Validate() error {
	fields := []struct{ name, value string }{
		{"root path", r.RootPath},
		{"info path", r.InfoPath},
		{"version", r.Version},
		{"result path", r.ResultPath},
		{"eval set", r.EvalSet},
		{"output dir", r.OutputDir},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("evaluator request: %s is required", f.name)
		}
	}
	return nil
}

// Bridge invokes the evaluator synchronously with no timeout.
type Bridge struct {
	Command string
	builder CommandBuilder
	fs      fsutil.FileSystem
}

// NewBridge creates a bridge for the given evaluator command. An empty
// command selects DefaultCommand.
func NewBridge(command string, fs fsutil.FileSystem) *Bridge {
	if command == "" {
		command = DefaultCommand
	}
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Bridge{Command: command, builder: ShellCommandBuilder{}, fs: fs}
}

// SetCommandBuilder replaces the builder used to start the evaluator.
func (b *Bridge) SetCommandBuilder(builder CommandBuilder) {
	if builder != nil {
		b.builder = builder
	}
}

// CommandLine returns the shell command for req. Paths are double-quoted
// so they may contain whitespace.
func (b *Bridge) CommandLine(req Request) string {
	var sb strings.Builder
	sb.WriteString(b.Command)
	fmt.Fprintf(&sb, " --root_path=%s", quote(req.RootPath))
	fmt.Fprintf(&sb, " --info_path=%s", quote(req.InfoPath))
	fmt.Fprintf(&sb, " --version=%s", req.Version)
	fmt.Fprintf(&sb, " --res_path=%s", quote(req.ResultPath))
	fmt.Fprintf(&sb, " --eval_set=%s", req.EvalSet)
	fmt.Fprintf(&sb, " --output_dir=%s", quote(req.OutputDir))
	return sb.String()
}

func quote(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return `"` + r.Replace(path) + `"`
}

// Run executes the evaluator for req, blocking until it exits, then loads
// the metrics summary from req.OutputDir.
func (b *Bridge) Run(req Request) (*MetricsSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	command := b.CommandLine(req)
	monitoring.Logf("evaluator: running %s", command)

	output, err := b.builder.BuildShellCommand(command).Run()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &EvaluatorProcessError{Command: command, ExitCode: code, Output: string(output)}
	}

	path := filepath.Join(req.OutputDir, MetricsFilename)
	ok, err := fsutil.CheckExists(b.fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat metrics %s: %w", path, err)
	}
	if !ok {
		return nil, &MetricsNotFoundError{Path: path}
	}
	data, err := b.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics %s: %w", path, err)
	}
	metrics, err := DecodeMetrics(data)
	if err != nil {
		return nil, fmt.Errorf("decode metrics %s: %w", path, err)
	}
	return metrics, nil
}
