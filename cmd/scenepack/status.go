package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/session"
)

func cmdStatus(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir := "."
	if rest := fs.Args(); len(rest) == 1 {
		dir = rest[0]
	}

	root, err := session.RequireSessionDir(dir)
	if err != nil {
		return err
	}
	paths, err := session.LoadPathsUUID(root)
	if err != nil {
		return err
	}
	ignore, err := session.LoadIgnoreFilter(root)
	if err != nil {
		return err
	}
	st, err := session.Diff(root, paths, ignore, nil)
	if err != nil {
		return err
	}

	for _, f := range st.Added {
		fmt.Printf("A\t%s\n", f)
	}
	for _, f := range st.Modified {
		fmt.Printf("M\t%s\n", f)
	}
	for _, f := range st.Removed {
		fmt.Printf("D\t%s\n", f)
	}
	return nil
}
