package evaluator

import (
	"os/exec"
)

// CommandExecutor runs a prepared command and returns its combined output.
type CommandExecutor interface {
	Run() ([]byte, error)
}

// CommandBuilder creates executors for shell command lines.
type CommandBuilder interface {
	BuildShellCommand(command string) CommandExecutor
}

// ShellCommandExecutor wraps exec.Cmd to implement CommandExecutor.
type ShellCommandExecutor struct {
	cmd *exec.Cmd
}

// Run executes the command and returns combined output.
func (s *ShellCommandExecutor) Run() ([]byte, error) {
	return s.cmd.CombinedOutput()
}

// ShellCommandBuilder implements CommandBuilder using sh -c.
type ShellCommandBuilder struct{}

// BuildShellCommand creates a CommandExecutor for a shell command line.
func (ShellCommandBuilder) BuildShellCommand(command string) CommandExecutor {
	return &ShellCommandExecutor{cmd: exec.Command("sh", "-c", command)}
}
