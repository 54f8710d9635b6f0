package cli

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/roach88/wavedash/internal/config"
	"github.com/roach88/wavedash/internal/testutil"
)

// testRootOptions returns options as the root command would populate them,
// with every fixture dataset written to a temp data dir.
func testRootOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteDashboardFiles(t, dir)
	return &RootOptions{
		Format: format,
		Config: &config.Config{DataDir: dir, LogLevel: slog.LevelInfo},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// execute runs cmd with args and stdin, returning stdout and the error.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
