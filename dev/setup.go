package main

import (
	"encoding/json"
	"fmt"
	devenv "isugrades-backend/dev/env"
	"isugrades-backend/internal/db"
	"isugrades-backend/internal/scrapers/isu"
	"isugrades-backend/pkg/sqliteutil"
	"log/slog"
	"os"
)

const gradebookDB = "<dev_state>/isugrades.db"

func CreateGradebookDB() error {
	path, err := devenv.ResolvePath(gradebookDB)
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	database, err := sqliteutil.Config{File: gradebookDB}.OpenDB(db.Schema)
	if err != nil {
		return err
	}
	return database.Close()
}

// CreatePortalTestConfig writes an empty live portal config for the tests to
// pick up once it is filled in.
func CreatePortalTestConfig() error {
	path, err := devenv.GetStateFilePath("isu_config.local.json5")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		return nil
	}

	contents, err := json.MarshalIndent(devenv.PortalTestConfig{
		BaseUrl: isu.DefaultBaseUrl,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("writing live portal test config template to", path)
	return os.WriteFile(path, contents, 0600)
}

func PrintConfigLocations() {
	slog.Info("the live portal tests are skipped until login and password are filled in at dev/.state/isu_config.local.json5, look at the result of skipped tests in `go test -v` for details.")
}
