package config

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestExitf_ExitsWithCode1 uses the subprocess pattern because os.Exit cannot
// be intercepted in-process.
func TestExitf_ExitsWithCode1(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		Exitf("fatal: %s", "something broke")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitf_ExitsWithCode1$")
	cmd.Env = append(os.Environ(), "TEST_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "fatal: something broke") {
		t.Fatalf("expected stderr to contain %q, got %q", "fatal: something broke", string(out))
	}
}

func TestExitCodef_UsageCode(t *testing.T) {
	if os.Getenv("TEST_EXITCODEF_SUBPROCESS") == "1" {
		ExitCodef(ExitUsage, "usage: %s", "leaguectl")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitCodef_UsageCode$")
	cmd.Env = append(os.Environ(), "TEST_EXITCODEF_SUBPROCESS=1")

	_, err := cmd.CombinedOutput()
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != ExitUsage {
		t.Fatalf("exit code = %d, want %d", exitErr.ExitCode(), ExitUsage)
	}
}

func TestWriteExitMessageSingleNewline(t *testing.T) {
	var buf bytes.Buffer
	writeExitMessage(&buf, "boom\n")
	if buf.String() != "boom\n" {
		t.Fatalf("message = %q, want %q", buf.String(), "boom\n")
	}
}
