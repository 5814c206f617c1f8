package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/scenepack/scenepack/internal/report"
	"github.com/scenepack/scenepack/internal/session"
	"github.com/scenepack/scenepack/internal/transport"
)

func cmdCheckout(ctx context.Context, sink *report.Sink, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	server := fs.String("server", os.Getenv("BAM_SERVER"), "remote session server base URL")
	token := fs.String("token", os.Getenv("BAM_TOKEN"), "bearer token for the remote session server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return errUsage("checkout [-server=url] [-token=t] <project-path> <dest-dir>")
	}
	projectPath, dest := rest[0], rest[1]

	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	client := transport.NewClient(ctx, *server, *token)
	if err := session.Checkout(ctx, client, projectPath, dest, sink); err != nil {
		return err
	}
	sink.Infof("checked out: %s", dest)
	return nil
}
