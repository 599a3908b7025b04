package sequence_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"kyanite/internal/hashindex"
	"kyanite/internal/sequence"
)

func ascending() *sequence.Definition {
	return &sequence.Definition{
		ID:    1,
		Name:  "asc",
		Start: 1,
		Min:   math.MinInt64,
		Max:   math.MaxInt64,
		Step:  1,
	}
}

func TestNextStartsAtStart(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := ascending()
	def.Start = 42

	v, err := s.Next(def)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}

func TestNextStrictlyIncreasing(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := ascending()
	prev, err := s.Next(def)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		v, err := s.Next(def)
		require.NoError(t, err)
		require.Greater(t, v, prev)
		require.GreaterOrEqual(t, v, def.Min)
		require.LessOrEqual(t, v, def.Max)
		prev = v
	}
}

func TestNextDescending(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{
		ID: 2, Name: "desc", Start: 0,
		Min: math.MinInt64, Max: math.MaxInt64, Step: -3,
	}

	v, err := s.Next(def)
	require.NoError(t, err)
	require.Equal(t, int64(0), v)
	for i := 0; i < 50; i++ {
		next, err := s.Next(def)
		require.NoError(t, err)
		require.Equal(t, v-3, next)
		v = next
	}
}

func TestOverflowWithoutCycle(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{ID: 3, Name: "bounded", Start: 1, Min: 1, Max: 3, Step: 1}

	for want := int64(1); want <= 3; want++ {
		v, err := s.Next(def)
		require.NoError(t, err)
		require.Equal(t, want, v)
	}

	_, err := s.Next(def)
	var overflow *sequence.OverflowError
	require.ErrorAs(t, err, &overflow)
	require.Equal(t, "bounded", overflow.Name)

	// No state change: the stored value is still 3 and the failure repeats.
	v, ok := s.Get(def)
	require.True(t, ok)
	require.Equal(t, int64(3), v)
	_, err = s.Next(def)
	require.ErrorAs(t, err, &overflow)
}

func TestOverflowWithCycle(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{ID: 4, Name: "cyc", Start: 1, Min: 1, Max: 3, Step: 1, Cycle: true}

	got := make([]int64, 0, 7)
	for i := 0; i < 7; i++ {
		v, err := s.Next(def)
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, []int64{1, 2, 3, 1, 2, 3, 1}, got)
}

func TestDescendingCycle(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{ID: 5, Name: "dcyc", Start: 3, Min: 1, Max: 3, Step: -1, Cycle: true}

	got := make([]int64, 0, 5)
	for i := 0; i < 5; i++ {
		v, err := s.Next(def)
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, []int64{3, 2, 1, 3, 2}, got)
}

func TestNextGuardsInt64Range(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{
		ID: 6, Name: "edge", Start: math.MaxInt64 - 1,
		Min: math.MinInt64, Max: math.MaxInt64, Step: 10,
	}

	v, err := s.Next(def)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64-1), v)

	// Adding Step would cross the representable range; that is an
	// overflow, not a wraparound.
	_, err = s.Next(def)
	var overflow *sequence.OverflowError
	require.ErrorAs(t, err, &overflow)

	v, ok := s.Get(def)
	require.True(t, ok)
	require.Equal(t, int64(math.MaxInt64-1), v)
}

func TestSetAfterNextIsIdempotent(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := ascending()
	v, err := s.Next(def)
	require.NoError(t, err)
	require.NoError(t, s.Set(def, v))

	stored, ok := s.Get(def)
	require.True(t, ok)
	require.Equal(t, v, stored)

	next, err := s.Next(def)
	require.NoError(t, err)
	require.Equal(t, v+def.Step, next)
}

func TestUpdateNeverRegresses(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := ascending()
	require.NoError(t, s.Update(def, 100))

	// Values at or below the current one are ignored.
	for _, v := range []int64{100, 99, 0, -50} {
		require.NoError(t, s.Update(def, v))
		cur, ok := s.Get(def)
		require.True(t, ok)
		require.Equal(t, int64(100), cur)
	}

	require.NoError(t, s.Update(def, 101))
	cur, ok := s.Get(def)
	require.True(t, ok)
	require.Equal(t, int64(101), cur)
}

func TestUpdateDescendingNeverAdvances(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := &sequence.Definition{
		ID: 7, Name: "dupd", Start: 0,
		Min: math.MinInt64, Max: math.MaxInt64, Step: -1,
	}
	require.NoError(t, s.Update(def, -10))
	require.NoError(t, s.Update(def, -5))

	cur, ok := s.Get(def)
	require.True(t, ok)
	require.Equal(t, int64(-10), cur)
}

func TestResetThenNextReproducesStart(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	def := ascending()
	def.Start = 7

	for i := 0; i < 10; i++ {
		_, err := s.Next(def)
		require.NoError(t, err)
	}

	s.Reset(def)
	s.Reset(def) // idempotent

	v, err := s.Next(def)
	require.NoError(t, err)
	require.Equal(t, int64(7), v)
}

func TestSetOutsideRangeClampsOnNext(t *testing.T) {
	s := sequence.NewStore(0)
	defer s.Close()

	// Ascending: a value parked below Min clamps up to Min without
	// stepping.
	asc := &sequence.Definition{ID: 8, Name: "clamp", Start: 10, Min: 10, Max: 20, Step: 1}
	require.NoError(t, s.Set(asc, 3))
	v, err := s.Next(asc)
	require.NoError(t, err)
	require.Equal(t, int64(10), v)

	// Descending mirror: parked above Max clamps down to Max.
	desc := &sequence.Definition{ID: 9, Name: "dclamp", Start: 20, Min: 10, Max: 20, Step: -1}
	require.NoError(t, s.Set(desc, 100))
	v, err = s.Next(desc)
	require.NoError(t, err)
	require.Equal(t, int64(20), v)
}

func TestSetOutOfMemory(t *testing.T) {
	s := sequence.NewStore(1)
	defer s.Close()

	var sawOOM bool
	for id := uint32(0); id < 64; id++ {
		def := &sequence.Definition{ID: id, Name: "n", Start: 1, Min: 1, Max: 100, Step: 1}
		if err := s.Set(def, 5); err != nil {
			require.ErrorIs(t, err, hashindex.ErrOutOfMemory)
			sawOOM = true
			break
		}
	}
	require.True(t, sawOOM)
}
