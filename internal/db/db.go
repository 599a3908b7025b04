package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"kyanite/internal/checkpoint"
	"kyanite/internal/common"
	"kyanite/internal/cursor"
	"kyanite/internal/sequence"
)

// ErrNoCheckpoint reports a checkpoint operation on a DB opened without a
// checkpoint path.
var ErrNoCheckpoint = errors.New("db: no checkpoint path configured")

// DB bundles the storage adaptation layer behind one handle: the sequence
// store, the cursor environment and the optional on-disk sequence
// checkpoint. It carries no hidden globals; everything a session needs hangs
// off the handle.
type DB struct {
	Opts Options
	seq  *sequence.Store
	env  *cursor.Env
	log  *checkpoint.FileLog
}

func Open(optFns ...Option) (*DB, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	d := &DB{
		Opts: opts,
		seq:  sequence.NewStore(opts.SequenceExtentQuota),
		env:  cursor.NewEnv(opts.Engine),
	}

	if opts.CheckpointPath != "" {
		log, err := checkpoint.Open(opts.CheckpointPath)
		if err != nil {
			d.seq.Close()
			return nil, fmt.Errorf("db: open checkpoint: %w", err)
		}
		d.log = log
		common.Logf("opened checkpoint at %s\n", opts.CheckpointPath)
	}

	return d, nil
}

// Close releases the sequence store and the checkpoint file. Cursor handles
// obtained from this DB must be closed first.
func (d *DB) Close() error {
	var err error
	if d.log != nil {
		err = d.log.Close()
		d.log = nil
	}
	if d.seq != nil {
		d.seq.Close()
		d.seq = nil
	}
	return err
}

// Sequences exposes the sequence value store.
func (d *DB) Sequences() *sequence.Store {
	return d.seq
}

// NewTree returns a fresh cursor handle on the shared environment.
func (d *DB) NewTree() *cursor.Tree {
	return d.env.NewTree()
}

// CheckpointSequences writes a full image of the sequence store to the
// configured checkpoint file, replacing any prior image.
func (d *DB) CheckpointSequences(ctx context.Context) error {
	if d.log == nil {
		return ErrNoCheckpoint
	}
	start := time.Now()
	snap := d.seq.Snapshot()
	defer snap.Close()
	if err := d.log.WriteSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("db: checkpoint sequences: %w", err)
	}
	common.LogDuration(start, "checkpointed %d sequences", d.seq.Len())
	return nil
}

// WriteSequences streams a sequence snapshot to an arbitrary writer, for
// hosts that manage checkpoint placement themselves.
func (d *DB) WriteSequences(ctx context.Context, w io.Writer) error {
	snap := d.seq.Snapshot()
	defer snap.Close()
	return checkpoint.WriteAll(ctx, w, snap)
}

// RecoverSequences loads the checkpoint file back into the sequence store.
// lookup maps a recovered id to its schema definition; an id it does not
// know fails the recovery.
func (d *DB) RecoverSequences(ctx context.Context, lookup func(id uint32) (*sequence.Definition, bool)) error {
	if d.log == nil {
		return ErrNoCheckpoint
	}
	it, err := d.log.Iterator(ctx)
	if err != nil {
		return fmt.Errorf("db: recover sequences: %w", err)
	}
	defer it.Close()

	start := time.Now()
	n := 0
	for {
		id, value, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("db: recover sequences: %w", err)
		}
		if !ok {
			break
		}
		if err := d.applySequence(id, value, lookup); err != nil {
			return err
		}
		n++
	}
	common.LogDuration(start, "recovered %d sequences", n)
	return nil
}

// ReplaySequences is RecoverSequences over an arbitrary reader.
func (d *DB) ReplaySequences(ctx context.Context, r io.Reader, lookup func(id uint32) (*sequence.Definition, bool)) error {
	return checkpoint.Replay(ctx, r, func(id uint32, value int64) error {
		return d.applySequence(id, value, lookup)
	})
}

func (d *DB) applySequence(id uint32, value int64, lookup func(id uint32) (*sequence.Definition, bool)) error {
	def, ok := lookup(id)
	if !ok {
		return fmt.Errorf("db: recover sequences: unknown sequence id %d", id)
	}
	if err := d.seq.Set(def, value); err != nil {
		return fmt.Errorf("db: recover sequences: %w", err)
	}
	return nil
}
