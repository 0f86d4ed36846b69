package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorRecordLookup(t *testing.T) {
	c := NewCollector()
	c.RecordLookup("find_node", true, 10*time.Millisecond)
	c.RecordLookup("find_value", false, 20*time.Millisecond)

	snap := c.GetSnapshot()
	assert.EqualValues(t, 2, snap.LookupCount)
	assert.EqualValues(t, 1, snap.LookupSuccesses)
	assert.EqualValues(t, 1, snap.LookupFailures)
	assert.Equal(t, float64(50), snap.LookupSuccessRate())
	assert.Greater(t, snap.AvgLookupTime, float64(0))
}

func TestCollectorRecordStore(t *testing.T) {
	c := NewCollector()
	c.RecordStore(true)
	c.RecordStore(true)
	c.RecordStore(false)

	snap := c.GetSnapshot()
	assert.EqualValues(t, 2, snap.StoreSuccesses)
	assert.EqualValues(t, 1, snap.StoreRejections)
}

func TestCollectorRecordRPCFailure(t *testing.T) {
	c := NewCollector()
	c.RecordRPCFailure("peer-a")
	c.RecordRPCFailure("peer-b")

	snap := c.GetSnapshot()
	assert.EqualValues(t, 2, snap.RPCFailures)
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector()
	c.RecordLookup("find_node", true, time.Millisecond)
	c.RecordStore(true)
	c.RecordRPCFailure("peer-a")

	c.Reset()

	snap := c.GetSnapshot()
	assert.Zero(t, snap.LookupCount)
	assert.Zero(t, snap.StoreSuccesses)
	assert.Zero(t, snap.RPCFailures)
}

func TestCollectorSnapshotEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.GetSnapshot()
	assert.Zero(t, snap.LookupSuccessRate())
	assert.Zero(t, snap.AvgLookupTime)
	assert.Zero(t, snap.P95LookupTime)
}

func TestGetGlobalCollector(t *testing.T) {
	assert.NotNil(t, GetGlobalCollector())
	assert.Same(t, GetGlobalCollector(), GetGlobalCollector())
}
