package main

import (
	"context"
	"flag"
	"os"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/session"
	"github.com/scenepack/scenepack/internal/transport"
)

func cmdCommit(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	server := fs.String("server", os.Getenv("BAM_SERVER"), "remote session server base URL")
	token := fs.String("token", os.Getenv("BAM_TOKEN"), "bearer token for the remote session server")
	message := fs.String("message", "", "commit message")
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
	if !st.IsDirty() {
		sink.Infof("nothing to commit")
		return nil
	}

	plan, err := session.Commit(root, st, sink)
	if err != nil {
		return err
	}

	client := transport.NewClient(ctx, *server, *token)
	if err := session.Upload(ctx, client, root, *message, root, plan); err != nil {
		return err
	}
	sink.Infof("committed %d file(s)", plan.TouchedCount)
	return nil
}
