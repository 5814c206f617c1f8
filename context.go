// Package scenepack is the root of the scene-file bundling toolkit: it
// holds process-wide plumbing (interruptible contexts, at-exit hooks)
// shared by the core packages under internal/ and by cmd/scenepack.
package scenepack

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context which is canceled when the program is
// interrupted (i.e. receiving SIGINT or SIGTERM). A long pack or walk
// operation watches ctx.Done() between suspension points (§5); canceling
// never deletes a staging directory, so a retry can reuse it.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// Subsequent signals will result in immediate termination, which is
		// useful in case cleanup hangs:
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
