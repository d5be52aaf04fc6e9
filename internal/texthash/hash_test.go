package texthash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash64IsDeterministic(t *testing.T) {
	a := Hash64([]byte("kitab"), 42)
	b := Hash64([]byte("kitab"), 42)
	require.Equal(t, a, b)
}

func TestHash64DependsOnSeed(t *testing.T) {
	a := Hash64([]byte("kitab"), 1)
	b := Hash64([]byte("kitab"), 2)
	require.NotEqual(t, a, b)
}

func TestHash64DependsOnBytes(t *testing.T) {
	a := Hash64([]byte("kitab"), 7)
	b := Hash64([]byte("fiqh"), 7)
	require.NotEqual(t, a, b)
}
