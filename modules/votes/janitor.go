package votes

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/teamraj/votebot/logger"
)

// Janitor periodically sweeps membership entries old enough that nothing
// can trust them anymore. Correctness never depends on it; it only bounds
// cache memory.
type Janitor struct {
	cache    *Cache
	interval time.Duration
	maxAge   time.Duration
	clock    clockwork.Clock

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewJanitor(cache *Cache, interval, maxAge time.Duration, clock clockwork.Clock) *Janitor {
	return &Janitor{
		cache:    cache,
		interval: interval,
		maxAge:   maxAge,
		clock:    clock,
		done:     make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := j.clock.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				j.run()
			case <-j.done:
				return
			}
		}
	}()
}

func (j *Janitor) Stop() {
	j.once.Do(func() {
		close(j.done)
	})
	j.wg.Wait()
}

func (j *Janitor) run() {
	cleaned := j.cache.Sweep(j.maxAge)
	if cleaned > 0 {
		logger.Out().Printf("Cleaned %d stale membership entries, %d remain\n", cleaned, j.cache.Len())
	} else {
		logger.Debug().Print("No stale membership entries to clean")
	}
}
