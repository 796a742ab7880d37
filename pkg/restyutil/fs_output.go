package restyutil

import (
	devenv "isugrades-backend/dev/env"
	"log/slog"
	"os"
	"path/filepath"
)

// InstrumentOutput receives a formatted http message for every request made
// by an instrumented client.
type InstrumentOutput interface {
	Write(id string, contents string)
}

// FilesystemOutput writes every message into its own file inside a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears and recreates the given directory, `<dev_state>`
// prefixes are resolved with devenv.ResolvePath.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
