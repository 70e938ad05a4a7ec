//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	jetOutput         = "gen"
	jetSchemaFile     = "jet-schema.db"
	jetConfigPath     = "configs/jet.toml"
	serverBin         = "./bin/eventserver"
	defaultConfigPath = "configs/server.toml"
	jetToolPackage    = "github.com/go-jet/jet/v2/cmd/jet@v2.9.0"
	lintToolPackage   = "github.com/golangci/golangci-lint/cmd/golangci-lint@v1.55.2"
)

func goModDownload() error {
	return sh.Run("go", "mod", "download")
}

// Build builds server binary
func Build() error {
	mg.Deps(goModDownload)
	return sh.RunWith(map[string]string{
		"CGO_ENABLED": "1",
	}, "go", "build", "-o", serverBin, "./cmd")
}

// Run starts server
func Run() error {
	mg.Deps(Build)
	return sh.Run(serverBin, "--config", defaultConfigPath, "serve")
}

// Migrate applies migrations for the configured storage driver
func Migrate() error {
	mg.Deps(Build)
	return sh.Run(serverBin, "--config", defaultConfigPath, "migrate")
}

// GenJet regenerates gen/model and gen/table from a freshly migrated sqlite schema
func GenJet() error {
	mg.Deps(Build)
	defer os.Remove(jetSchemaFile)
	if err := sh.Run(serverBin, "--config", jetConfigPath, "migrate"); err != nil {
		return err
	}
	return sh.RunWith(map[string]string{
		"CGO_ENABLED": "1",
	}, "go", "run", jetToolPackage, "-source", "sqlite", "-dsn", jetSchemaFile, "-path", jetOutput, "-ignore-tables", "schema_migrations")
}

func Lint() error {
	return sh.Run("go", "run", lintToolPackage, "run", "./...")
}

// Test runs unit tests
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}
