package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetricsRegistered(t *testing.T) {
	assert.NotNil(t, MessagesHandled)
	assert.NotNil(t, SignatureValidations)
	assert.NotNil(t, MessageProcessingDuration)
	assert.NotNil(t, MessageSize)
	assert.NotNil(t, RPCsSent)
	assert.NotNil(t, RPCFailuresTotal)
	assert.NotNil(t, RPCDuration)
	assert.NotNil(t, LookupsStarted)
	assert.NotNil(t, LookupsActive)
	assert.NotNil(t, LookupsFailed)
	assert.NotNil(t, LookupDuration)
	assert.NotNil(t, StoreRequests)
	assert.NotNil(t, RoutingTableSize)
	assert.NotNil(t, RoutingTableBuckets)
}

func TestPrometheusCollectorRecordsAllSeries(t *testing.T) {
	p := NewPrometheusCollector()

	p.RecordLookup("find_node", true, 0)
	p.RecordLookup("find_value", false, 0)
	p.RecordStore(true)
	p.RecordStore(false)
	p.RecordRPCFailure("peer-a")
	p.SetRoutingTableSize(12, 3)

	assert.Greater(t, testutil.CollectAndCount(LookupsStarted), 0)
	assert.Greater(t, testutil.CollectAndCount(LookupDuration), 0)
	assert.Greater(t, testutil.ToFloat64(LookupsFailed), float64(0))
	assert.Greater(t, testutil.CollectAndCount(StoreRequests), 0)
	assert.Greater(t, testutil.ToFloat64(RPCFailuresTotal), float64(0))
	assert.Equal(t, float64(12), testutil.ToFloat64(RoutingTableSize))
	assert.Equal(t, float64(3), testutil.ToFloat64(RoutingTableBuckets))

	snap := p.GetSnapshot()
	assert.EqualValues(t, 2, snap.LookupCount)
}

func TestMessageMetricsIncrement(t *testing.T) {
	MessagesHandled.WithLabelValues("ping", "ok").Inc()
	SignatureValidations.WithLabelValues("valid").Inc()
	MessageProcessingDuration.Observe(0.001)
	MessageSize.Observe(256)

	assert.Greater(t, testutil.CollectAndCount(MessagesHandled), 0)
	assert.Greater(t, testutil.CollectAndCount(SignatureValidations), 0)
}

func TestRPCMetricsIncrement(t *testing.T) {
	RPCsSent.WithLabelValues("find_node", "ok").Inc()
	RPCDuration.WithLabelValues("find_node").Observe(0.01)

	assert.Greater(t, testutil.CollectAndCount(RPCsSent), 0)
}
