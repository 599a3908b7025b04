package checkpoint

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// FileLog stores one checkpoint in a single file on disk. Each record is a
// self-delimiting msgpack array, so the file needs no framing of its own.
type FileLog struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Open creates (or reopens) a checkpoint file at path.
func Open(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLog{
		file: f,
		path: path,
	}, nil
}

// Close releases the underlying file handle.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// WriteSnapshot replaces the file's contents with the records drained from
// src, then syncs. A checkpoint is a full image, not an append log.
func (l *FileLog) WriteSnapshot(ctx context.Context, src Source) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("checkpoint: log is closed")
	}
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := WriteAll(ctx, l.file, src); err != nil {
		return err
	}
	return l.file.Sync()
}

// Iterator returns a forward-only reader over all checkpoint records.
func (l *FileLog) Iterator(ctx context.Context) (Iterator, error) {
	r, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	return &fileIterator{
		ctx: ctx,
		f:   r,
		dec: msgpack.NewDecoder(bufio.NewReader(r)),
	}, nil
}

type fileIterator struct {
	ctx context.Context
	f   *os.File
	dec *msgpack.Decoder
}

func (it *fileIterator) Next() (uint32, int64, bool, error) {
	if err := it.ctx.Err(); err != nil {
		return 0, 0, false, err
	}
	id, value, err := decodeRecord(it.dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return id, value, true, nil
}

func (it *fileIterator) Close() error {
	return it.f.Close()
}

// WriteAll drains src into w, record by record. The source is not closed.
func WriteAll(ctx context.Context, w io.Writer, src Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := src.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if _, err := w.Write(rec); err != nil {
			return err
		}
	}
}

// Replay decodes records from r and hands each to apply, stopping at EOF or
// on the first error from either side.
func Replay(ctx context.Context, r io.Reader, apply func(id uint32, value int64) error) error {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, value, err := decodeRecord(dec)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := apply(id, value); err != nil {
			return err
		}
	}
}

func decodeRecord(dec *msgpack.Decoder) (uint32, int64, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return 0, 0, err
	}
	if n != 2 {
		return 0, 0, fmt.Errorf("checkpoint: record has %d fields, want 2", n)
	}
	id, err := dec.DecodeUint32()
	if err != nil {
		return 0, 0, fmt.Errorf("checkpoint: decode id: %w", err)
	}
	value, err := dec.DecodeInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("checkpoint: decode value: %w", err)
	}
	return id, value, nil
}
