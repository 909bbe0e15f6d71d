package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() {
		versionCmd.SetOut(nil)
		_ = versionCmd.Flags().Set("json", "false")
	})

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "frame-finder "+Version) {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	if err := versionCmd.Flags().Set("json", "true"); err != nil {
		t.Fatal(err)
	}
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var info buildInfo
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if info.Version != Version || info.GoVersion == "" || !strings.Contains(info.Platform, "/") {
		t.Errorf("unexpected build info %+v", info)
	}
}
