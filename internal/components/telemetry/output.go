package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DumpSubdir is the directory NewFilesystemOutput creates inside the
// directory it is given. Only this subdirectory is ever cleared.
const DumpSubdir = "clawredeem-dump"

// FilesystemOutput writes every rendered exchange into its own file in a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears dir/DumpSubdir from a previous run and prepares
// it to receive exchanges. Nothing else in dir is touched.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	target := filepath.Join(dir, DumpSubdir)
	err := os.RemoveAll(target)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("clear %s: %w", target, err)
	}
	err = os.MkdirAll(target, 0o755)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create %s: %w", target, err)
	}
	return FilesystemOutput{directory: target}, nil
}

// Dir is the directory exchanges are written to.
func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
