package busmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/devicespec"
)

func TestMatchResultsExactIDFirstPass(t *testing.T) {
	var specs = []devicespec.SpecifiedDevice{
		{BusAlias: "bus1", Type: devicespec.IM871A, ID: "12345678"},
		{BusAlias: "bus2", Type: devicespec.IM871A},
	}
	var results = []ProbeResult{
		{Path: "/dev/ttyUSB0", Type: devicespec.IM871A, ID: "12345678"},
	}

	var matches = MatchResults(results, specs)
	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].Spec)
	assert.Equal(t, "bus1", matches[0].Spec.BusAlias)
}

func TestMatchResultsFallsBackToBareTypeSecondPass(t *testing.T) {
	var specs = []devicespec.SpecifiedDevice{
		{BusAlias: "bus1", Type: devicespec.IM871A, ID: "99999999"},
		{BusAlias: "bus2", Type: devicespec.IM871A},
	}
	var results = []ProbeResult{
		{Path: "/dev/ttyUSB0", Type: devicespec.IM871A, ID: "12345678"},
	}

	var matches = MatchResults(results, specs)
	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].Spec)
	assert.Equal(t, "bus2", matches[0].Spec.BusAlias)
}

func TestMatchResultsUnmatchedWhenNoSpecFits(t *testing.T) {
	var results = []ProbeResult{{Path: "/dev/ttyUSB0", Type: devicespec.AMB8465, ID: "aaa"}}
	var matches = MatchResults(results, nil)
	require.Len(t, matches, 1)
	assert.Nil(t, matches[0].Spec)
}

func TestMatchResultsDoesNotDoubleAssignASpec(t *testing.T) {
	var specs = []devicespec.SpecifiedDevice{{BusAlias: "bus1", Type: devicespec.IM871A}}
	var results = []ProbeResult{
		{Path: "/dev/ttyUSB0", Type: devicespec.IM871A},
		{Path: "/dev/ttyUSB1", Type: devicespec.IM871A},
	}

	var matches = MatchResults(results, specs)
	require.Len(t, matches, 2)
	var matchedCount = 0
	for _, m := range matches {
		if m.Spec != nil {
			matchedCount++
		}
	}
	assert.Equal(t, 1, matchedCount)
}
