package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAccumulatesPerModel(t *testing.T) {
	c := NewCollector()
	c.Record("G1", InternalTransition)
	c.Record("G1", InternalTransition)
	c.Record("G1", Output)
	c.Record("R", ExternalTransition)

	snap := c.Snapshot()
	require.Equal(t, uint64(2), snap["G1"].InternalTransitions)
	require.Equal(t, uint64(1), snap["G1"].OutputCalls)
	require.Equal(t, uint64(1), snap["R"].ExternalTransitions)
	require.Equal(t, uint64(0), snap["R"].InternalTransitions)
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.Record("G1", Select)
	snap := c.Snapshot()
	c.Record("G1", Select)

	require.Equal(t, uint64(1), snap["G1"].SelectCalls, "a prior snapshot must not see later Records")
	require.Equal(t, uint64(2), c.Snapshot()["G1"].SelectCalls)
}

func TestCollector_WithoutMeterDoesNotPanic(t *testing.T) {
	c := NewCollector(WithRunID("run-1"))
	require.NotPanics(t, func() { c.Record("G1", TimeAdvance) })
}
