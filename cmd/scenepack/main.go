// Command scenepack is the CLI front-end over the core packages: it
// wires flag parsing and verb dispatch to pack, deps, remap-*, and the
// session commands (§6 CLI).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/scenepack/scenepack"
	"github.com/scenepack/scenepack/internal/report"
)

var debug = flag.Bool("debug", false, "format error messages with additional detail")

type cmd struct {
	fn   func(ctx context.Context, sink *report.Sink, args []string) error
	help string
}

var verbs = map[string]cmd{
	"pack":         {cmdPack, "pack a root scene file and its dependencies into a bundle"},
	"deps":         {cmdDeps, "list the external references of one or more scene files"},
	"remap-start":  {cmdRemapStart, "fingerprint a tree's files before moving them"},
	"remap-finish": {cmdRemapFinish, "rewrite references after a tree has moved"},
	"remap-reset":  {cmdRemapReset, "abandon an in-progress remap"},
	"init":         {cmdInit, "initialize a bam repository in the current directory"},
	"checkout":     {cmdCheckout, "check out a project's bundle into a new session"},
	"status":       {cmdStatus, "show added, modified and removed files in a session"},
	"commit":       {cmdCommit, "upload local changes as a new revision"},
}

func funcmain() error {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		return usage()
	}
	verb, rest := args[0], args[1:]
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		return usage()
	}

	ctx, canc := scenepack.InterruptibleContext()
	defer canc()

	sink := report.Stderr()
	if err := v.fn(ctx, sink, rest); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return scenepack.RunAtExit()
}

func usage() error {
	fmt.Fprintf(os.Stderr, "scenepack [-flags] <command> [-flags] <args>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for name, v := range verbs {
		fmt.Fprintf(os.Stderr, "\t%-14s %s\n", name, v.help)
	}
	os.Exit(2)
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
