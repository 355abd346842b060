package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionsEmbedded(t *testing.T) {
	vs, err := Versions()
	require.NoError(t, err)
	require.NotEmpty(t, vs)
	assert.Equal(t, int64(1), vs[0])
}

func TestRunWithoutDSNIsNoop(t *testing.T) {
	assert.NoError(t, Run(Options{}))
}

func TestRunUnknownCommand(t *testing.T) {
	err := Run(Options{DSN: "postgres://127.0.0.1:1/none?sslmode=disable", Command: "sideways"})
	assert.Error(t, err)
}
