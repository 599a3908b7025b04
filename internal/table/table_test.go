package table_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"kyanite/internal/table"
)

func TestPutKeepsRowsSorted(t *testing.T) {
	tbl := table.New(nil)

	for _, k := range []string{"delta", "alpha", "echo", "bravo", "charlie"} {
		require.NoError(t, tbl.Put([]byte(k), []byte("v-"+k)))
	}

	require.Equal(t, 5, tbl.Len())
	want := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for i, k := range want {
		key, data := tbl.At(i)
		require.Equal(t, k, string(key))
		require.Equal(t, "v-"+k, string(data))
	}
}

func TestPutReplacesEqualKey(t *testing.T) {
	tbl := table.New(nil)
	require.NoError(t, tbl.Put([]byte("k"), []byte("v1")))
	require.NoError(t, tbl.Put([]byte("k"), []byte("v2")))

	require.Equal(t, 1, tbl.Len())
	_, data := tbl.At(0)
	require.Equal(t, []byte("v2"), data)
}

func TestPutClonesBuffers(t *testing.T) {
	tbl := table.New(nil)

	key := []byte("alpha")
	data := []byte("value")
	require.NoError(t, tbl.Put(key, data))

	// Mutate the originals; the stored row must be unaffected.
	key[0] = 'A'
	data[0] = 'V'

	k, d := tbl.At(0)
	require.Equal(t, []byte("alpha"), k)
	require.Equal(t, []byte("value"), d)
}

func TestSearch(t *testing.T) {
	tbl := table.New(nil)
	for _, k := range []string{"b", "d", "f"} {
		require.NoError(t, tbl.Put([]byte(k), nil))
	}

	tests := []struct {
		key   string
		pos   int
		found bool
	}{
		{"a", 0, false},
		{"b", 0, true},
		{"c", 1, false},
		{"d", 1, true},
		{"e", 2, false},
		{"f", 2, true},
		{"g", 3, false},
	}
	for _, tt := range tests {
		pos, found := tbl.Search([]byte(tt.key))
		require.Equal(t, tt.pos, pos, "Search(%q) position", tt.key)
		require.Equal(t, tt.found, found, "Search(%q) found", tt.key)
	}
}

func TestDeleteAt(t *testing.T) {
	tbl := table.New(nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, tbl.Put([]byte(fmt.Sprintf("k%d", i)), nil))
	}

	require.NoError(t, tbl.DeleteAt(2))
	require.Equal(t, 4, tbl.Len())
	_, found := tbl.Search([]byte("k2"))
	require.False(t, found)

	key, _ := tbl.At(2)
	require.Equal(t, []byte("k3"), key)
}

func TestClear(t *testing.T) {
	tbl := table.New(nil)
	require.NoError(t, tbl.Put([]byte("a"), nil))
	require.NoError(t, tbl.Clear())
	require.Equal(t, 0, tbl.Len())
}

func TestCustomComparator(t *testing.T) {
	// Reverse ordering.
	tbl := table.New(func(a, b []byte) int {
		switch {
		case string(a) < string(b):
			return 1
		case string(a) > string(b):
			return -1
		}
		return 0
	})

	for _, k := range []string{"a", "c", "b"} {
		require.NoError(t, tbl.Put([]byte(k), nil))
	}

	var got []string
	for i := 0; i < tbl.Len(); i++ {
		key, _ := tbl.At(i)
		got = append(got, string(key))
	}
	require.Equal(t, []string{"c", "b", "a"}, got)
}
