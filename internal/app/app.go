// Package app wires the wipe engine together: device gate, resume
// verification, pretest, strategy selection and the interrupt
// boundary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"wipeit/internal/config"
	"wipeit/internal/device"
	"wipeit/internal/progress"
	"wipeit/internal/reporting"
	"wipeit/internal/wipe"
)

// ErrInterrupted marks a wipe stopped by the user with its progress
// saved. Callers exit with a distinguishable status so scripts can
// tell "interrupted, resumable" from "failed".
var ErrInterrupted = errors.New("wipe interrupted")

// ErrMounted marks a device that is still mounted. Wiping a mounted
// device is never attempted.
var ErrMounted = errors.New("device is mounted")

// Options control one wipe run.
type Options struct {
	DevicePath string

	// BufferSize overrides the configured baseline chunk size when
	// positive. ForcedBuffer marks it as an explicit user choice,
	// which selects the buffer_override algorithm and bypasses the
	// pretest.
	BufferSize   int64
	ForcedBuffer bool

	Resume      bool
	SkipPretest bool

	// ExtraSink, when non-nil, receives checkpoint and milestone
	// events in addition to the progress store (used by the CLI for
	// display).
	ExtraSink wipe.EventSink
}

// wipeTarget is the open device handle strategies write through.
type wipeTarget interface {
	wipe.Target
	io.Closer
}

// blockDevice is the device collaborator Run depends on.
type blockDevice interface {
	IsMounted() (bool, []string, error)
	Size() (int64, error)
	Identity() (device.Identity, error)
	DetectType() (device.Type, string, []string)
	OpenForWrite() (wipeTarget, error)
}

// osDevice adapts *device.Device to the collaborator contract.
type osDevice struct {
	*device.Device
}

func (d osDevice) OpenForWrite() (wipeTarget, error) {
	return d.Device.OpenForWrite()
}

// App owns the orchestration state for wipe runs.
type App struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	store *progress.Store

	openDevice func(path string) blockDevice
}

func New(cfg *config.Config, log *zap.SugaredLogger) *App {
	return &App{
		cfg:   cfg,
		log:   log,
		store: progress.NewStore(cfg.Progress.File, cfg.ProgressExpiry(), log),
		openDevice: func(path string) blockDevice {
			return osDevice{device.New(path)}
		},
	}
}

// Store exposes the progress store for resume discovery.
func (a *App) Store() *progress.Store {
	return a.store
}

// Run executes one wipe pass over the device named in opts. The
// context is the cancellation signal: the strategy observes it between
// chunk writes, and on cancellation Run persists the strategy's live
// written counter before returning ErrInterrupted.
func (a *App) Run(ctx context.Context, opts Options) error {
	dev := a.openDevice(opts.DevicePath)

	mounted, mounts, err := dev.IsMounted()
	if err != nil {
		return err
	}
	if mounted {
		return fmt.Errorf("%w: %s (%s)", ErrMounted, opts.DevicePath, strings.Join(mounts, ", "))
	}

	totalSize, err := dev.Size()
	if err != nil {
		return fmt.Errorf("cannot determine device size: %w", err)
	}

	identity, err := dev.Identity()
	if err != nil {
		return fmt.Errorf("cannot read device identity: %w", err)
	}

	diskType, confidence, details := dev.DetectType()
	rotational := diskType == device.TypeHDD

	a.log.Infow("device detected",
		"path", opts.DevicePath,
		"size", totalSize,
		"type", diskType,
		"confidence", confidence,
		"details", details,
		"serial", identity.Serial,
		"model", identity.Model)

	chunkSize := opts.BufferSize
	if chunkSize <= 0 {
		chunkSize = a.cfg.BufferSizeBytes()
	}

	var (
		startPosition  int64
		pretestResult  *wipe.PretestResult
		savedAlgorithm wipe.Algorithm
	)

	if opts.Resume {
		if rec := a.store.Load(); rec != nil {
			// A mismatch is fatal: never silently start a fresh wipe
			// of what may be the wrong physical device.
			if err := a.store.VerifyIdentity(rec, identity); err != nil {
				return err
			}

			startPosition = rec.Written
			pretestResult = rec.Pretest
			savedAlgorithm = rec.Algorithm

			if !opts.ForcedBuffer && rec.ChunkSize > 0 {
				chunkSize = rec.ChunkSize
			}

			a.log.Infow("resuming previous session",
				"written", startPosition,
				"percent", rec.ProgressPercent,
				"algorithm", savedAlgorithm,
				"previous_session", time.Unix(rec.Timestamp, 0))
		} else {
			a.log.Infow("no previous progress found, starting from beginning")
		}
	} else if err := a.store.Clear(); err != nil {
		a.log.Warnw("could not clear old progress file", "error", err)
	}

	target, err := dev.OpenForWrite()
	if err != nil {
		return err
	}
	defer target.Close() //nolint:errcheck

	// Pretest runs on fresh rotational-disk wipes only; resumed
	// sessions reuse the persisted result instead of re-measuring.
	if rotational && !opts.SkipPretest && !opts.ForcedBuffer && pretestResult == nil && startPosition == 0 {
		pt := wipe.NewPretest(target, totalSize, a.cfg.PretestChunkBytes(), a.log)
		pt.LowSpeedThreshold = a.cfg.Pretest.LowSpeedMBps
		pt.HighVarianceThreshold = a.cfg.Pretest.HighVarianceMBps

		result, err := pt.Run(ctx)
		if err != nil {
			// Pretest is an optimization, never a gate.
			a.log.Warnw("pretest failed, falling back to standard algorithm", "error", err)
		} else {
			pretestResult = result
		}
	}

	var forcedChunk int64
	if opts.ForcedBuffer {
		forcedChunk = chunkSize
	}

	algorithm := savedAlgorithm
	if algorithm == "" {
		algorithm = wipe.SelectAlgorithm(rotational, pretestResult, forcedChunk)
	}

	persister := &progressSink{
		store:      a.store,
		log:        a.log,
		devicePath: opts.DevicePath,
		identity:   identity,
		algorithm:  algorithm,
		pretest:    pretestResult,
	}

	var sink wipe.EventSink = persister
	if opts.ExtraSink != nil {
		sink = wipe.MultiSink{persister, opts.ExtraSink}
	}

	strategy, err := wipe.NewStrategy(algorithm, target, totalSize, chunkSize, startPosition, pretestResult, sink)
	if err != nil {
		return err
	}

	if setter, ok := strategy.(interface{ SetCheckpointThreshold(int64) }); ok {
		setter.SetCheckpointThreshold(a.cfg.CheckpointThreshold())
	}

	// First checkpoint: record the session before the first chunk so a
	// crash during the earliest writes is still resumable.
	persister.Checkpoint(startPosition, totalSize, chunkSize)

	start := time.Now()
	a.log.Infow("starting wipe",
		"device", opts.DevicePath,
		"algorithm", algorithm,
		"chunk_size", chunkSize,
		"start_position", startPosition)

	if wipeErr := strategy.Wipe(ctx); wipeErr != nil {
		// The strategy's live counter is the single authority for how
		// much was actually written.
		written := strategy.Written()
		persister.Checkpoint(written, totalSize, chunkSize)

		if errors.Is(wipeErr, context.Canceled) || errors.Is(wipeErr, context.DeadlineExceeded) {
			a.log.Warnw("wipe interrupted, progress saved", "written", written)
			return fmt.Errorf("%w: %d of %d bytes written", ErrInterrupted, written, totalSize)
		}

		return fmt.Errorf("wipe failed after %d bytes: %w", written, wipeErr)
	}

	if err := a.store.Clear(); err != nil {
		a.log.Warnw("could not clear progress file", "error", err)
	}

	end := time.Now()

	if a.cfg.Reporting.Enabled {
		rep := reporting.New(opts.DevicePath, identity, algorithm, totalSize, startPosition, start, end)
		if path, err := reporting.Write(a.cfg.Reporting.Dir, rep); err != nil {
			a.log.Warnw("could not write completion report", "error", err)
		} else {
			a.log.Infow("completion report written", "path", path)
		}
	}

	a.log.Infow("wipe completed",
		"device", opts.DevicePath,
		"bytes", totalSize,
		"duration", end.Sub(start).String())

	return nil
}

// RunPretest measures device throughput without wiping.
func (a *App) RunPretest(ctx context.Context, devicePath string) (*wipe.PretestResult, error) {
	dev := a.openDevice(devicePath)

	mounted, mounts, err := dev.IsMounted()
	if err != nil {
		return nil, err
	}
	if mounted {
		return nil, fmt.Errorf("%w: %s (%s)", ErrMounted, devicePath, strings.Join(mounts, ", "))
	}

	totalSize, err := dev.Size()
	if err != nil {
		return nil, fmt.Errorf("cannot determine device size: %w", err)
	}

	target, err := dev.OpenForWrite()
	if err != nil {
		return nil, err
	}
	defer target.Close() //nolint:errcheck

	pt := wipe.NewPretest(target, totalSize, a.cfg.PretestChunkBytes(), a.log)
	pt.LowSpeedThreshold = a.cfg.Pretest.LowSpeedMBps
	pt.HighVarianceThreshold = a.cfg.Pretest.HighVarianceMBps

	return pt.Run(ctx)
}

// progressSink forwards checkpoint events to the progress store. The
// strategy stays ignorant of the storage format.
type progressSink struct {
	store      *progress.Store
	log        *zap.SugaredLogger
	devicePath string
	identity   device.Identity
	algorithm  wipe.Algorithm
	pretest    *wipe.PretestResult
}

func (p *progressSink) Checkpoint(written, totalSize, chunkSize int64) {
	rec := &progress.Record{
		Device:    p.devicePath,
		Written:   written,
		TotalSize: totalSize,
		ChunkSize: chunkSize,
		Algorithm: p.algorithm,
		Pretest:   p.pretest,
		DeviceID:  &p.identity,
	}

	if err := p.store.Save(rec); err != nil {
		p.log.Warnw("could not save progress", "error", err)
	}
}

func (p *progressSink) Milestone(percent int, estimatedFinish time.Time) {
	if estimatedFinish.IsZero() {
		p.log.Infow("progress milestone", "percent", percent)
		return
	}

	p.log.Infow("progress milestone",
		"percent", percent,
		"estimated_finish", estimatedFinish.Format("3:04 PM"))
}
