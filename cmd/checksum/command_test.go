package checksum

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwodder/zarrgallery/cmd"
	"github.com/jwodder/zarrgallery/internal/logger"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func TestChecksumCommandEmitsRootLine(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"checksum", "breadth-first", root})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	line := strings.TrimSpace(buf.String())
	parts := strings.SplitN(line, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 32 {
		t.Fatalf("output = %q, want a 32-hex-char digest followed by '-'", line)
	}
	if want := "1--0"; parts[1] != want {
		t.Errorf("output suffix = %q, want %q (one empty file, zero bytes)", parts[1], want)
	}
}

func TestChecksumCommandUnknownStrategy(t *testing.T) {
	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"checksum", "bogus-strategy", t.TempDir()})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("Execute() with an unknown strategy should return an error")
	}
}

func TestChecksumCommandInvalidRoot(t *testing.T) {
	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"checksum", "breadth-first", filepath.Join(t.TempDir(), "does-not-exist")})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("Execute() against a missing root should return an error")
	}
}
