package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCMD()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if got := out.String(); !strings.Contains(got, AppName+" v"+version) {
		t.Errorf("version output = %q", got)
	}
}

func TestProbeCommandRejectsBadLink(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := ""
	cmd := probeCMD(&cfg)
	cmd.SetArgs([]string{"https://example.com/video"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "not a supported") {
		t.Errorf("expected unsupported link error, got %v", err)
	}
}
