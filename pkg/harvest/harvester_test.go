package harvest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"valavatar/pkg/chains"
	"valavatar/pkg/logger"
)

func TestHarvestContinuesAfterFailedEndpoint(t *testing.T) {
	first := newLCDServer(t, page(key("k"), "A", "B"))
	first.status[2] = 503
	second := newLCDServer(t, page(nil, "B", "C", ""))

	log := logger.NewTestLogger()
	h := NewHarvester(newTestWalker(100, 0, log), log)

	set, results := h.Harvest(context.Background(), []chains.Endpoint{
		{ChainID: "first", LCD: first.URL},
		{ChainID: "second", LCD: second.URL},
	})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, []string{"A", "B", "C"}, set.Freeze())
	assert.True(t, log.HasMessage("endpoint walk aborted"))
	assert.True(t, log.HasMessage("endpoint walk complete"))
}

func TestHarvestStopsWhenCancelled(t *testing.T) {
	server := newLCDServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHarvester(newTestWalker(100, 0, nil), nil)
	set, results := h.Harvest(ctx, []chains.Endpoint{{ChainID: "c", LCD: server.URL}})

	assert.Empty(t, results)
	assert.Equal(t, 0, set.Len())
}
