package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceMonitorSamplesProcess(t *testing.T) {
	rm, err := NewResourceMonitor()
	require.NoError(t, err)

	first := rm.GetResourceUsage()
	assert.Positive(t, first.GoroutineCount)
	assert.Positive(t, first.HeapAlloc)
	assert.GreaterOrEqual(t, first.PeakRSS, first.MemoryRSS)

	second := rm.GetResourceUsage()
	assert.GreaterOrEqual(t, second.PeakRSS, first.PeakRSS)
}
