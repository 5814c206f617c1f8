package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/session"
)

func cmdInit(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir := "."
	if rest := fs.Args(); len(rest) == 1 {
		dir = rest[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(abs, session.ConfigDir), 0o755); err != nil {
		return err
	}
	if err := session.WriteDefaultIgnore(abs); err != nil {
		return err
	}
	sink.Infof("initialized bam repository: %s", abs)
	return nil
}
