package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evrptw/core/factory"
)

const detourInstance = `StringID Type x y demand ReadyTime DueDate ServiceTime
D0 d 0.0 0.0 0.0 0.0 1000.0 0.0
S0 f 5.0 2.0 0.0 0.0 1000.0 0.0
C1 c 10.0 0.0 1.0 0.0 1000.0 0.0

Q Vehicle fuel tank capacity /16.0/
C Vehicle load capacity /10.0/
r fuel consumption rate /1.0/
g inverse refueling rate /0.1/
v average Velocity /1.0/
`

func writeInstance(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(detourInstance), 0o644); err != nil {
		t.Fatalf("write instance: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	path := writeInstance(t, t.TempDir(), "detourC5.txt")
	out, err := execute(t, "inspect", path, "--station-copies", "1")
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	var rep inspectReport
	if err := yaml.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode yaml: %v\n%s", err, out)
	}
	if rep.Nodes != 4 || rep.Stations != 1 || rep.Clients != 1 || rep.Arcs != 12 {
		t.Errorf("unexpected graph stats: %+v", rep)
	}
	if rep.Binaries != 12 || rep.Families["visit_once"] != 1 {
		t.Errorf("unexpected model stats: %+v", rep)
	}
	if rep.BigM.Battery != 16 || rep.BigM.Time != 1000 {
		t.Errorf("unexpected big-M: %+v", rep.BigM)
	}
}

func TestExportLP(t *testing.T) {
	dir := t.TempDir()
	path := writeInstance(t, dir, "detourC5.txt")
	lp := filepath.Join(dir, "model.lp")
	if out, err := execute(t, "export-lp", path, "--station-copies", "1", "-o", lp); err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	b, err := os.ReadFile(lp)
	if err != nil {
		t.Fatalf("read lp: %v", err)
	}
	for _, want := range []string{"Minimize", "Subject To", "Binaries", "End"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("lp file lacks %q", want)
		}
	}
}

func TestSolveExhaustive(t *testing.T) {
	dir := t.TempDir()
	writeInstance(t, dir, "detourC5.txt")
	writeInstance(t, dir, "ignored.txt")
	results := filepath.Join(dir, "results.txt")
	out, err := execute(t, "solve", "--dir", dir, "--instances", "small", "--solver", "exhaustive",
		"--out", results, "-l", "30", "-p", "2", "--station-copies", "1", "--routes")
	if err != nil {
		t.Fatalf("solve: %v\n%s", err, out)
	}
	if !strings.Contains(out, "EVRPTW") || !strings.Contains(out, "detourC5 route 1: D0 -> ") {
		t.Errorf("unexpected output:\n%s", out)
	}
	b, err := os.ReadFile(results)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got:\n%s", b)
	}
	if !strings.HasPrefix(lines[1], "detourC5, 1, 20.7703, ") || !strings.Contains(lines[1], "OPTIMAL") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestWithCSVPath(t *testing.T) {
	sinks := []factory.ModuleConfig{{Type: "jsonl"}, {Type: "csv", Conf: map[string]any{"path": "a"}}}
	got := withCSVPath(sinks, "b")
	if got[1].Conf["path"] != "b" || sinks[1].Conf["path"] != "a" {
		t.Errorf("unexpected sinks: %+v", got)
	}
	got = withCSVPath(sinks[:1], "c")
	if len(got) != 2 || got[1].Type != "csv" {
		t.Errorf("expected csv sink appended: %+v", got)
	}
}
