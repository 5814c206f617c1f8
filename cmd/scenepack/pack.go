package main

import (
	"context"
	"flag"

	"github.com/scenepack/scenepack/internal/packer"
	"github.com/scenepack/scenepack/internal/report"
)

func cmdPack(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	archive := fs.Bool("archive", false, "produce a single deflate archive instead of a directory tree")
	allDeps := fs.Bool("all-deps", false, "expand every object in a linked library, not only those referenced")
	level := fs.Int("compression-level", -1, "deflate compression level, -1 (default) to 9")
	fakeroot := fs.String("project-fakeroot", "", "project-root-relative directory of the root scene file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return errUsage("pack <root.blend> <dest>")
	}

	mode := packer.ModeFile
	if *archive {
		mode = packer.ModeArchive
	}

	result, err := packer.Pack(ctx, packer.Options{
		Root:             rest[0],
		Dest:             rest[1],
		Mode:             mode,
		AllDeps:          *allDeps,
		CompressionLevel: *level,
		Fakeroot:         *fakeroot,
	}, sink)
	if err != nil {
		return err
	}
	sink.Infof("bundle written: %s", result.Dest)
	return nil
}
