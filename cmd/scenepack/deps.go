package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/walker"
)

func cmdDeps(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("deps", flag.ExitOnError)
	recursive := fs.Bool("recursive", false, "follow every discovered library in turn")
	allDeps := fs.Bool("all-deps", false, "expand every object in a linked library, not only those referenced")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errUsage("deps [-recursive] <scene.blend>...")
	}

	w := walker.New(walker.Options{Recursive: *recursive, FullLibrary: *allDeps})
	for _, p := range paths {
		err := w.Walk(ctx, p, func(ref walker.Reference) error {
			fmt.Printf("%s\t%s\t%s\n", ref.BlockCode, ref.Status, ref.Path)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
