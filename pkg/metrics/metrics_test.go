package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryMetrics(t *testing.T) {
	t.Run("CounterAccumulates", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Counter("requests", 1, nil)
		m.Counter("requests", 2, map[string]string{"target": "local"})
		assert.Equal(t, 3.0, m.CounterValue("requests"))
	})

	t.Run("UnknownCounterIsZero", func(t *testing.T) {
		m := NewInMemoryMetrics()
		assert.Zero(t, m.CounterValue("nothing"))
	})

	t.Run("ConcurrentCounters", func(t *testing.T) {
		m := NewInMemoryMetrics()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					m.Counter("hits", 1, nil)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1000.0, m.CounterValue("hits"))
	})
}

func TestNoOpMetrics(t *testing.T) {
	m := NewNoOpMetrics()
	// Must simply not panic.
	m.Counter("x", 1, nil)
	m.Gauge("y", 2, nil)
	m.Timer("z", 3, nil)
}
