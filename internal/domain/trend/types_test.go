package trend

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTargetKeyEscapesSeparators(t *testing.T) {
	require.Equal(t, "3/7", Target{DeviceID: "3", TagID: "7"}.Key())

	a := Target{DeviceID: "a/b", TagID: "c"}
	b := Target{DeviceID: "a", TagID: "b/c"}
	require.NotEqual(t, a.Key(), b.Key())
	require.Equal(t, "a%2Fb/c", a.Key())
	require.Equal(t, "a/b%2Fc", b.Key())
}
