package plot

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gitlab.com/NebulousLabs/errors"

	"github.com/raslllos/subspace-1/build"
)

// Run starts all three pipelines and blocks until one of them returns a
// fatal error, ctx is cancelled, or Stop is called. The first pipeline
// error terminates every other pipeline (spec.md §6, "run(plot)").
func (p *Plot) Run(ctx context.Context) error {
	p.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.runPlotting(gctx) })
	g.Go(func() error { return p.runSlotForwarder(gctx) })
	g.Go(func() error { return p.runFarming(gctx) })
	g.Go(func() error { return p.runReading(gctx) })

	runErr := g.Wait()
	p.reportFatal(runErr)

	atomic.StoreInt32(&p.state, int32(StateStopping))
	stopErr := p.tg.Stop()
	atomic.StoreInt32(&p.state, int32(StateStopped))

	return build.ComposeErrors(runErr, stopErr)
}

// Err returns the channel on which the plot's first fatal pipeline error,
// if any, is delivered exactly once.
func (p *Plot) Err() <-chan error {
	return p.errCh
}

// Stop requests every pipeline to exit and waits for them to do so, without
// waiting for Run's caller. It is safe to call concurrently with Run.
func (p *Plot) Stop() error {
	atomic.StoreInt32(&p.state, int32(StateStopping))
	err := p.tg.Stop()
	atomic.StoreInt32(&p.state, int32(StateStopped))
	return err
}

// Wipe deletes every file belonging to the plot in dir: plot.bin,
// metadata.bin, the identity file, then the descriptor, in that order
// (spec.md §4.1 "Wipe", §8 scenario 6). The descriptor's absence is
// reported as ErrNoDescriptor; the absence of the other three files is
// tolerated once the descriptor check has passed, since a partially
// created plot may be missing some of them. Wipe operates on a directory
// alone and does not require an open Plot.
func Wipe(dir string) error {
	if _, err := os.Stat(descriptorPath(dir)); os.IsNotExist(err) {
		return ErrNoDescriptor
	} else if err != nil {
		return errors.AddContext(err, "could not stat plot descriptor")
	}

	var errs []error
	for _, path := range []string{
		filepath.Join(dir, plotDataFilename),
		filepath.Join(dir, metadataFilename),
		identityPath(dir),
		descriptorPath(dir),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, build.ExtendErr("could not remove "+path, err))
		}
	}
	return build.ComposeErrors(errs...)
}
