package checkpoint

import "context"

// Source yields encoded snapshot records. Next returns nil, nil once the
// source is drained. Closing the source stays with the caller.
// *sequence.Snapshot satisfies this.
type Source interface {
	Next() ([]byte, error)
}

// Log persists sequence checkpoint records and replays them on recovery.
type Log interface {
	WriteSnapshot(ctx context.Context, src Source) error
	Iterator(ctx context.Context) (Iterator, error)
	Close() error
}

// Iterator walks records recovered from a checkpoint.
// Next returns ok=false with a nil error when EOF is reached.
type Iterator interface {
	Next() (id uint32, value int64, ok bool, err error)
	Close() error
}
