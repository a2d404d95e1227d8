package evaluator

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/udi-dataset/internal/fsutil"
)

const sampleMetrics = `{
  "label_aps": {"car": {"0.5": 0.8, "1.0": 0.9}},
  "label_tp_errors": {"car": {"trans_err": 0.1234, "attr_err": NaN}},
  "mean_ap": 0.85,
  "nd_score": 0.5
}`

type recordingBuilder struct {
	commands []string
	output   []byte
	err      error
}

type recordingExecutor struct {
	b *recordingBuilder
}

func (e *recordingExecutor) Run() ([]byte, error) { return e.b.output, e.b.err }

func (b *recordingBuilder) BuildShellCommand(command string) CommandExecutor {
	b.commands = append(b.commands, command)
	return &recordingExecutor{b: b}
}

func request(dir string) Request {
	return Request{
		RootPath:   "/data/udi root",
		InfoPath:   "/data/udi root/infos_udi_train.cbor",
		Version:    "v0.1-train",
		ResultPath: filepath.Join(dir, "results_udi.json"),
		EvalSet:    "train",
		OutputDir:  dir,
	}
}

func TestBridge_CommandLine(t *testing.T) {
	b := NewBridge("python3 /opt/udi_eval.py", fsutil.NewMemoryFileSystem())
	got := b.CommandLine(request("/out dir"))

	want := `python3 /opt/udi_eval.py --root_path="/data/udi root"` +
		` --info_path="/data/udi root/infos_udi_train.cbor"` +
		` --version=v0.1-train` +
		` --res_path="/out dir/results_udi.json"` +
		` --eval_set=train` +
		` --output_dir="/out dir"`
	assert.Equal(t, want, got)
}

func TestBridge_DefaultCommand(t *testing.T) {
	b := NewBridge("", nil)
	assert.Equal(t, DefaultCommand, b.Command)
}

func TestQuote_EscapesShellMetacharacters(t *testing.T) {
	assert.Equal(t, `"a \"b\" \$c"`, quote(`a "b" $c`))
}

func TestBridge_Run_WithRecordedCommand(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/out/"+MetricsFilename, []byte(sampleMetrics), 0644))

	rb := &recordingBuilder{}
	b := NewBridge("eval", mfs)
	b.SetCommandBuilder(rb)

	m, err := b.Run(request("/out"))
	require.NoError(t, err)
	require.Len(t, rb.commands, 1)
	assert.True(t, strings.HasPrefix(rb.commands[0], "eval --root_path="))

	aps, ok := m.LabelAPs.Get("car")
	require.True(t, ok)
	assert.Equal(t, []string{"0.5", "1.0"}, aps.Keys)
}

func TestBridge_Run_ProcessFailure(t *testing.T) {
	dir := t.TempDir()
	b := NewBridge(`sh -c 'echo evaluator exploded; exit 3'`, nil)

	_, err := b.Run(request(dir))
	require.Error(t, err)

	var procErr *EvaluatorProcessError
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, 3, procErr.ExitCode)
	assert.Contains(t, procErr.Output, "evaluator exploded")
	assert.Contains(t, procErr.Command, "--eval_set=train")
}

func TestBridge_Run_MetricsMissing(t *testing.T) {
	dir := t.TempDir()
	b := NewBridge("true", nil)

	_, err := b.Run(request(dir))
	var notFound *MetricsNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, filepath.Join(dir, MetricsFilename), notFound.Path)
}

type lockedMetricsFS struct {
	*fsutil.MemoryFileSystem
}

func (lockedMetricsFS) Stat(name string) (fs.FileInfo, error) {
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrPermission}
}

func TestBridge_Run_MetricsUnreadable(t *testing.T) {
	b := NewBridge("udi_eval", lockedMetricsFS{fsutil.NewMemoryFileSystem()})
	b.SetCommandBuilder(&recordingBuilder{})

	_, err := b.Run(request("/out"))
	require.Error(t, err)
	var notFound *MetricsNotFoundError
	assert.False(t, errors.As(err, &notFound), "permission error reported as missing: %v", err)
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestBridge_Run_ScriptWritesMetrics(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output with space")
	require.NoError(t, os.MkdirAll(dir, 0755))

	script := filepath.Join(t.TempDir(), "eval.sh")
	body := `#!/bin/sh
for arg in "$@"; do
  case "$arg" in
    --output_dir=*) out="${arg#--output_dir=}" ;;
  esac
done
printf '%s\n' "$@" > "$out/args.txt"
cat > "$out/metrics_summary.json" <<'JSON'
` + sampleMetrics + `
JSON
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))

	b := NewBridge("sh "+script, nil)
	m, err := b.Run(request(dir))
	require.NoError(t, err)

	errs, ok := m.LabelTPErrors.Get("car")
	require.True(t, ok)
	assert.Equal(t, []string{"trans_err", "attr_err"}, errs.Keys)
	assert.InDelta(t, 0.85, m.MeanAP, 1e-12)

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "--root_path=/data/udi root\n")
	assert.Contains(t, string(args), "--output_dir="+dir+"\n")
}

func TestRequest_Validate(t *testing.T) {
	req := request("/out")
	require.NoError(t, req.Validate())

	req.EvalSet = ""
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eval set")

	_, err = NewBridge("true", nil).Run(req)
	assert.Error(t, err)
}
