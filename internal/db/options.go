package db

import "kyanite/internal/cursor"

type Options struct {
	// SequenceExtentQuota bounds the extent pool behind the sequence
	// store's index; <= 0 selects the built-in default.
	SequenceExtentQuota int
	// CheckpointPath is the file sequence checkpoints are written to and
	// recovered from. Empty disables the on-disk checkpoint.
	CheckpointPath string
	// Engine backs persistent cursor roots. Nil selects the in-memory
	// engine.
	Engine cursor.Engine
}

var DefaultOptions = Options{
	SequenceExtentQuota: 0,
	CheckpointPath:      "",
	Engine:              nil,
}

type Option func(*Options)

func WithSequenceExtentQuota(n int) Option {
	return func(o *Options) {
		o.SequenceExtentQuota = n
	}
}

func WithCheckpointPath(path string) Option {
	return func(o *Options) {
		o.CheckpointPath = path
	}
}

func WithEngine(e cursor.Engine) Option {
	return func(o *Options) {
		o.Engine = e
	}
}
