package sequence_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"kyanite/internal/sequence"
)

// decodeRecord unpacks one [id, value] snapshot record.
func decodeRecord(t *testing.T, rec []byte) (uint32, int64) {
	t.Helper()
	dec := msgpack.NewDecoder(bytes.NewReader(rec))
	n, err := dec.DecodeArrayLen()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	id, err := dec.DecodeUint32()
	require.NoError(t, err)
	value, err := dec.DecodeInt64()
	require.NoError(t, err)
	return id, value
}

func drainSnapshot(t *testing.T, snap *sequence.Snapshot) map[uint32]int64 {
	t.Helper()
	out := make(map[uint32]int64)
	for {
		rec, err := snap.Next()
		require.NoError(t, err)
		if rec == nil {
			return out
		}
		require.LessOrEqual(t, len(rec), sequence.RecordBufSize)
		id, value := decodeRecord(t, rec)
		out[id] = value
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	want := map[uint32]int64{
		1: 100,
		2: -7,
		3: math.MaxInt64,
		4: math.MinInt64,
		5: 0,
	}
	for id, v := range want {
		def := &sequence.Definition{ID: id, Name: "s", Min: math.MinInt64, Max: math.MaxInt64, Step: 1}
		require.NoError(t, s.Set(def, v))
	}

	snap := s.Snapshot()
	defer snap.Close()

	got := drainSnapshot(t, snap)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotUnaffectedByLaterWrites(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	defs := make([]*sequence.Definition, 0, 50)
	for id := uint32(1); id <= 50; id++ {
		def := &sequence.Definition{ID: id, Name: "s", Min: math.MinInt64, Max: math.MaxInt64, Step: 1}
		defs = append(defs, def)
		require.NoError(t, s.Set(def, int64(id)))
	}

	snap := s.Snapshot()
	defer snap.Close()

	// Overwrite every value after freezing, then drain. Each record must
	// hold the pre-freeze value, never a torn or post-freeze one.
	for _, def := range defs {
		require.NoError(t, s.Set(def, -1))
	}

	got := drainSnapshot(t, snap)
	require.Len(t, got, 50)
	for id := uint32(1); id <= 50; id++ {
		require.Equal(t, int64(id), got[id])
	}
}

func TestSnapshotNegativeValueUsesSignedEncoding(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{ID: 9, Name: "neg", Min: math.MinInt64, Max: math.MaxInt64, Step: 1}
	require.NoError(t, s.Set(def, -123456))

	snap := s.Snapshot()
	defer snap.Close()

	rec, err := snap.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	id, value := decodeRecord(t, rec)
	require.Equal(t, uint32(9), id)
	require.Equal(t, int64(-123456), value)

	rec, err = snap.Next()
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestSnapshotCloseIsTerminal(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{ID: 1, Name: "x", Min: 0, Max: 10, Step: 1}
	require.NoError(t, s.Set(def, 1))

	snap := s.Snapshot()
	snap.Close()
	snap.Close() // safe to call twice

	rec, err := snap.Next()
	require.NoError(t, err)
	require.Nil(t, rec)
}
