package stream

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// fakeTranscoder builds shell commands instead of ffmpeg invocations. The
// repair command prepends a marker so a repaired file is distinguishable.
type fakeTranscoder struct {
	repairFails    bool
	recordBody     string // written to the output path by the record command
	recordHangs    bool   // keep the record process alive until signaled
	recordTrapExit int    // exit with this code on SIGTERM instead of dying to it
	repairLog      string // append one line here per repair invocation
}

func (f *fakeTranscoder) ProxyCommand(inputURL, playlistPath string) *exec.Cmd {
	return exec.Command("sh", "-c", fmt.Sprintf("echo segment > %q; while :; do sleep 0.05; done", playlistPath))
}

func (f *fakeTranscoder) RecordCommand(inputURL, outputPath string) *exec.Cmd {
	script := fmt.Sprintf("printf %%s %q > %q", f.recordBody, outputPath)
	if f.recordTrapExit != 0 {
		script += fmt.Sprintf("; trap 'exit %d' TERM; while :; do sleep 0.05; done", f.recordTrapExit)
	} else if f.recordHangs {
		script += "; while :; do sleep 0.05; done"
	}
	return exec.Command("sh", "-c", script)
}

func (f *fakeTranscoder) RepairCommand(inputPath, outputPath string) *exec.Cmd {
	script := fmt.Sprintf("printf repaired: > %q; cat %q >> %q", outputPath, inputPath, outputPath)
	if f.repairFails {
		script = "exit 1"
	}
	if f.repairLog != "" {
		script = fmt.Sprintf("echo run >> %q; ", f.repairLog) + script
	}
	return exec.Command("sh", "-c", script)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRepairReplacesFileOnSuccess(t *testing.T) {
	rp := NewRepairer(&fakeTranscoder{})
	p := writeFile(t, t.TempDir(), "rec.mp4", "broken bytes")

	if !rp.Repair(p) {
		t.Fatal("repair of non-empty file failed")
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "repaired:broken bytes" {
		t.Errorf("file content = %q", got)
	}
	if _, err := os.Stat(repairTempPath(p)); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestRepairLeavesOriginalOnFailure(t *testing.T) {
	rp := NewRepairer(&fakeTranscoder{repairFails: true})
	p := writeFile(t, t.TempDir(), "rec.mp4", "broken bytes")

	if rp.Repair(p) {
		t.Fatal("failing repair reported success")
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "broken bytes" {
		t.Errorf("original modified on failed repair: %q", got)
	}
	if _, err := os.Stat(repairTempPath(p)); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestRepairDeletesEmptyFile(t *testing.T) {
	rp := NewRepairer(&fakeTranscoder{})
	p := writeFile(t, t.TempDir(), "rec.mp4", "")

	if rp.Repair(p) {
		t.Fatal("empty file reported repaired")
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("empty file not deleted")
	}
}

func TestRepairMissingFile(t *testing.T) {
	rp := NewRepairer(&fakeTranscoder{})
	if rp.Repair(filepath.Join(t.TempDir(), "missing.mp4")) {
		t.Fatal("missing file reported repaired")
	}
}

func TestRepairRemovesStaleTemp(t *testing.T) {
	rp := NewRepairer(&fakeTranscoder{})
	dir := t.TempDir()
	p := writeFile(t, dir, "rec.mp4", "broken bytes")
	writeFile(t, dir, "rec.fixed.mp4", "stale leftovers")

	if !rp.Repair(p) {
		t.Fatal("repair failed with stale temp present")
	}
	got, _ := os.ReadFile(p)
	if string(got) != "repaired:broken bytes" {
		t.Errorf("file content = %q", got)
	}
}
