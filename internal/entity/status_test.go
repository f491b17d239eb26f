package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusWireValues(t *testing.T) {
	// These integers are consumed by the portal frontend; renumbering them
	// breaks deployed clients.
	require.Equal(t, 0, int(StatusDraft))
	require.Equal(t, 1, int(StatusApproved))
	require.Equal(t, 2, int(StatusRejected))
	require.Equal(t, 3, int(StatusInAnalysis))
	require.Equal(t, 5, int(StatusPendingApproval))
}

func TestParseStatus(t *testing.T) {
	for _, v := range []int{0, 1, 2, 3, 5} {
		status, err := ParseStatus(v)
		require.NoError(t, err)
		require.Equal(t, v, int(status))
	}

	_, err := ParseStatus(4)
	require.Error(t, err, "4 is reserved")

	_, err = ParseStatus(6)
	require.Error(t, err)

	_, err = ParseStatus(-1)
	require.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	require.True(t, StatusApproved.Terminal())
	require.True(t, StatusRejected.Terminal())
	require.False(t, StatusDraft.Terminal())
	require.False(t, StatusInAnalysis.Terminal())
	require.False(t, StatusPendingApproval.Terminal())
}
