package sequence_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kyanite/internal/sequence"
)

func seqDef() *sequence.Definition {
	return &sequence.Definition{ID: 10, Name: "orders", Owner: 1}
}

func TestAccessOwnerPasses(t *testing.T) {
	cr := &sequence.Credentials{User: "alice", UID: 1}
	require.NoError(t, sequence.CheckAccess(seqDef(), cr))
}

func TestAccessUniversalGrantPasses(t *testing.T) {
	cr := &sequence.Credentials{
		User:      "admin",
		UID:       99,
		Universal: sequence.PrivUsage | sequence.PrivWrite,
	}
	require.NoError(t, sequence.CheckAccess(seqDef(), cr))
}

func TestAccessPerSequenceGrantPasses(t *testing.T) {
	cr := &sequence.Credentials{
		User:    "bob",
		UID:     2,
		Granted: map[uint32]sequence.Priv{10: sequence.PrivUsage | sequence.PrivWrite},
	}
	require.NoError(t, sequence.CheckAccess(seqDef(), cr))
}

func TestAccessUniversalMasksGrantRequirement(t *testing.T) {
	// Universal usage plus a per-sequence write grant covers the residual.
	cr := &sequence.Credentials{
		User:      "carol",
		UID:       3,
		Universal: sequence.PrivUsage,
		Granted:   map[uint32]sequence.Priv{10: sequence.PrivWrite},
	}
	require.NoError(t, sequence.CheckAccess(seqDef(), cr))
}

func TestAccessDeniedNoUniversePrivilege(t *testing.T) {
	cr := &sequence.Credentials{User: "mallory", UID: 4}
	err := sequence.CheckAccess(seqDef(), cr)

	var denied *sequence.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "universe", denied.ObjectType)
	require.Equal(t, sequence.PrivUsage, denied.Priv)
	require.Equal(t, "mallory", denied.User)
	require.Equal(t, "usage access to universe '' is denied for user 'mallory'", err.Error())
}

func TestAccessDeniedOnSequence(t *testing.T) {
	// Has universal usage, but nothing granting write on this sequence.
	cr := &sequence.Credentials{
		User:      "trent",
		UID:       5,
		Universal: sequence.PrivUsage,
	}
	err := sequence.CheckAccess(seqDef(), cr)

	var denied *sequence.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "sequence", denied.ObjectType)
	require.Equal(t, "orders", denied.Object)
	require.Equal(t, "trent", denied.User)
	require.Equal(t, "usage,write access to sequence 'orders' is denied for user 'trent'", err.Error())
}

func TestAccessIsPure(t *testing.T) {
	def := seqDef()
	cr := &sequence.Credentials{User: "eve", UID: 6}
	for i := 0; i < 3; i++ {
		require.Error(t, sequence.CheckAccess(def, cr))
	}
	cr.Universal = sequence.PrivUsage | sequence.PrivWrite
	require.NoError(t, sequence.CheckAccess(def, cr))
}
