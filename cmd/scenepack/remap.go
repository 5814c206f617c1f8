package main

import (
	"context"
	"flag"

	"github.com/scenepack/scenepack/internal/remap"
	"github.com/scenepack/scenepack/internal/report"
)

func cmdRemapStart(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("remap-start", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errUsage("remap-start <path>...")
	}
	m, err := remap.Start(ctx, paths, sink)
	if err != nil {
		return err
	}
	return remap.SaveStartMap(m)
}

func cmdRemapFinish(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("remap-finish", flag.ExitOnError)
	forceRelative := fs.Bool("force-relative", false, "rewrite every reference relative, even ones that were project-absolute")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing anything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errUsage("remap-finish [-force-relative] [-dry-run] <path>...")
	}
	m, err := remap.LoadStartMap()
	if err != nil {
		return err
	}
	return remap.Finish(paths, m, *forceRelative, *dryRun, sink)
}

func cmdRemapReset(ctx context.Context, sink *report.Sink, args []string) error {
	return remap.Reset()
}
