package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBenchEndToEnd(t *testing.T) {
	benchNodes = 4
	benchOps = 5
	benchTimeout = 5 * time.Second

	require.NoError(t, runBench(benchCmd, nil))
}

func TestRunBenchRejectsTooFewNodes(t *testing.T) {
	benchNodes = 1
	benchOps = 1
	benchTimeout = time.Second

	err := runBench(benchCmd, nil)
	assert.Error(t, err)
}
