package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	TickRate   float64
	SwitchRate float64
	WakeRate   float64
	BlockRate  float64
}

// SchedulerStats keeps per-second rates of scheduler events averaged over a
// sliding window of windowSize seconds.
type SchedulerStats struct {
	tickCount   uint64
	switchCount uint64
	wakeCount   uint64
	blockCount  uint64

	mu            sync.RWMutex
	tickHistory   []uint64
	switchHistory []uint64
	wakeHistory   []uint64
	blockHistory  []uint64
	windowSize    int

	quit chan struct{}
}

func NewSchedulerStats(windowSize int) *SchedulerStats {
	if windowSize <= 0 {
		windowSize = 1
	}

	return &SchedulerStats{
		tickHistory:   make([]uint64, windowSize),
		switchHistory: make([]uint64, windowSize),
		wakeHistory:   make([]uint64, windowSize),
		blockHistory:  make([]uint64, windowSize),
		windowSize:    windowSize,
		quit:          make(chan struct{}),
	}
}

func (rc *SchedulerStats) Start() {
	// Ticker to update window every second
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.UpdateWindow()
		case <-rc.quit:
			return
		}
	}
}

func (rc *SchedulerStats) Stop() {
	close(rc.quit)
}

func (rc *SchedulerStats) IncrementTick() {
	atomic.AddUint64(&rc.tickCount, 1)
}

func (rc *SchedulerStats) IncrementSwitch() {
	atomic.AddUint64(&rc.switchCount, 1)
}

func (rc *SchedulerStats) IncrementWake() {
	atomic.AddUint64(&rc.wakeCount, 1)
}

func (rc *SchedulerStats) IncrementBlock() {
	atomic.AddUint64(&rc.blockCount, 1)
}

func (rc *SchedulerStats) UpdateWindow() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	// Shift history to the left and store current counts
	for i := 1; i < rc.windowSize; i++ {
		rc.tickHistory[i-1] = rc.tickHistory[i]
		rc.switchHistory[i-1] = rc.switchHistory[i]
		rc.wakeHistory[i-1] = rc.wakeHistory[i]
		rc.blockHistory[i-1] = rc.blockHistory[i]
	}
	rc.tickHistory[rc.windowSize-1] = atomic.SwapUint64(&rc.tickCount, 0)
	rc.switchHistory[rc.windowSize-1] = atomic.SwapUint64(&rc.switchCount, 0)
	rc.wakeHistory[rc.windowSize-1] = atomic.SwapUint64(&rc.wakeCount, 0)
	rc.blockHistory[rc.windowSize-1] = atomic.SwapUint64(&rc.blockCount, 0)
}

func (rc *SchedulerStats) GetRates() *Stats {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	var totalTick, totalSwitch, totalWake, totalBlock uint64

	for i := 0; i < rc.windowSize; i++ {
		totalTick += rc.tickHistory[i]
		totalSwitch += rc.switchHistory[i]
		totalWake += rc.wakeHistory[i]
		totalBlock += rc.blockHistory[i]
	}

	seconds := float64(rc.windowSize)
	return &Stats{
		TickRate:   float64(totalTick) / seconds,
		SwitchRate: float64(totalSwitch) / seconds,
		WakeRate:   float64(totalWake) / seconds,
		BlockRate:  float64(totalBlock) / seconds,
	}
}
