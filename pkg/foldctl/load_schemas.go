package foldctl

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/platinummonkey/foldcore/pkg/schema"
)

func newLoadSchemasCommand() *Command {
	cmd := &Command{
		Name:        "load-schemas",
		Description: "Bulk-load every schema document in a directory, continuing past individual failures",
		Flags:       flag.NewFlagSet("load-schemas", flag.ExitOnError),
		Run:         runLoadSchemas,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("dir", "", "Directory of schema JSON documents (*.json)")
	return cmd
}

func runLoadSchemas(args []string) error {
	cmd := newLoadSchemasCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	dir := cmd.Flags.Lookup("dir").Value.String()
	if err := requiredFlag("dir", dir); err != nil {
		return err
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("glob schema dir: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no *.json schema documents found under %q", dir)
	}
	sort.Strings(matches)

	docs := make([]*schema.Schema, 0, len(matches))
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %q: %w", path, err)
		}
		var doc schema.Schema
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse %q: %w", path, err)
		}
		docs = append(docs, &doc)
	}

	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	report := s.schemas.LoadAll(docs)
	for _, name := range report.Loaded {
		fmt.Printf("loaded schema %q\n", name)
	}
	for name, loadErr := range report.Failed {
		fmt.Printf("failed to load schema %q: %v\n", name, loadErr)
	}
	fmt.Printf("%d loaded, %d failed\n", len(report.Loaded), len(report.Failed))

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d schema documents failed to load", len(report.Failed), len(matches))
	}
	return nil
}
