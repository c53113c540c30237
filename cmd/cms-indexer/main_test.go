package main

import (
	"strings"
	"testing"
)

func TestExecute_Version(t *testing.T) {
	err := Execute("1.0.0", "abc123", "cms-indexer", []string{"--version"})
	if err != nil {
		t.Errorf("Expected no error for --version, got: %v", err)
	}
}

func TestExecute_Help(t *testing.T) {
	err := Execute("1.0.0", "abc123", "cms-indexer", []string{"--help"})
	if err != nil {
		t.Errorf("Expected no error for --help, got: %v", err)
	}
}

func TestExecute_SubcommandHelp(t *testing.T) {
	for _, sub := range []string{"reindex", "reindex-type", "seed", "status"} {
		if err := Execute("1.0.0", "abc123", "cms-indexer", []string{sub, "--help"}); err != nil {
			t.Errorf("%s --help: unexpected error: %v", sub, err)
		}
	}
}

func TestExecute_InvalidFlag(t *testing.T) {
	err := Execute("1.0.0", "abc123", "cms-indexer", []string{"--invalid-flag"})
	if err == nil {
		t.Error("Expected error for invalid flag")
	}
}

func TestExecute_InvalidTransport(t *testing.T) {
	err := Execute("1.0.0", "abc123", "cms-indexer", []string{"--transport", "invalid"})
	if err == nil {
		t.Fatal("Expected error for invalid transport")
	}
	if !strings.Contains(err.Error(), "transport") {
		t.Errorf("Expected error about transport, got: %v", err)
	}
}

func TestExecute_InvalidSourceDriver(t *testing.T) {
	err := Execute("1.0.0", "abc123", "cms-indexer", []string{"status", "--source-driver", "mongodb", "--index-base-dir", t.TempDir()})
	if err == nil {
		t.Fatal("Expected error for unknown source driver")
	}
	if !strings.Contains(err.Error(), "source-driver") {
		t.Errorf("Expected error about source-driver, got: %v", err)
	}
}

func TestRunMain_Success(t *testing.T) {
	exitCode := -1
	mockExit := func(code int) {
		exitCode = code
	}

	runMain([]string{"cms-indexer", "--help"}, mockExit)

	if exitCode != -1 {
		t.Errorf("Expected no exit call for --help, got exit code: %d", exitCode)
	}
}

func TestRunMain_Failure(t *testing.T) {
	exitCode := -1
	mockExit := func(code int) {
		exitCode = code
	}

	runMain([]string{"cms-indexer", "--invalid"}, mockExit)

	if exitCode != 1 {
		t.Errorf("Expected exit code 1 for invalid flag, got: %d", exitCode)
	}
}
