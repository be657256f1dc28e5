package profiler

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"
)

// Profiler logs the frame rate, memory statistics and per-stage frame timings once per
// interval. It is not safe for concurrent use; the render loop owns it.
type Profiler struct {
	frames   int
	since    time.Time
	interval time.Duration

	mem       runtime.MemStats
	prevGC    uint32
	prevAlloc uint64

	// Stage timings accumulated between two logged ticks, in first-seen order.
	stage       string
	stageStart  time.Time
	stageOrder  []string
	stageTotals map[string]time.Duration
	stageCounts map[string]int
}

// NewProfiler returns a Profiler that logs every second.
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler() *Profiler {
	return &Profiler{
		since:       time.Now(),
		interval:    time.Second,
		stageTotals: make(map[string]time.Duration),
		stageCounts: make(map[string]int),
	}
}

// BeginStage starts timing a named frame stage. A stage still open is ended first.
//
// Parameters:
//   - name: the stage name, e.g. "GeometryPass"
func (p *Profiler) BeginStage(name string) {
	if p.stage != "" {
		p.EndStage()
	}
	p.stage = name
	p.stageStart = time.Now()
}

// EndStage stops timing the open stage and adds its duration to the running totals.
// It is a no-op when no stage is open.
func (p *Profiler) EndStage() {
	if p.stage == "" {
		return
	}
	if _, seen := p.stageTotals[p.stage]; !seen {
		p.stageOrder = append(p.stageOrder, p.stage)
	}
	p.stageTotals[p.stage] += time.Since(p.stageStart)
	p.stageCounts[p.stage]++
	p.stage = ""
}

// StageAverage returns the mean duration recorded for a stage since the last logged tick.
//
// Parameters:
//   - name: the stage name
//
// Returns:
//   - time.Duration: the average, or 0 if the stage was not timed
func (p *Profiler) StageAverage(name string) time.Duration {
	n := p.stageCounts[name]
	if n == 0 {
		return 0
	}
	return p.stageTotals[name] / time.Duration(n)
}

// stageSummary formats the per-stage averages in first-seen order and resets the totals.
func (p *Profiler) stageSummary() string {
	parts := make([]string, 0, len(p.stageOrder))
	for _, name := range p.stageOrder {
		avg := p.StageAverage(name)
		parts = append(parts, fmt.Sprintf("%s: %.3f ms", name, float64(avg.Microseconds())/1000))
	}
	p.stageOrder = p.stageOrder[:0]
	clear(p.stageTotals)
	clear(p.stageCounts)
	return strings.Join(parts, " | ")
}

const mib = 1 << 20

// gcPauses returns the most recent GC pause and the longest pause among collections
// numbered from prev up to the current count, in microseconds. PauseNs only keeps the
// last 256 pauses.
func gcPauses(m *runtime.MemStats, prev uint32) (last, longest uint64) {
	n := m.NumGC
	if n == 0 {
		return 0, 0
	}
	ring := uint32(len(m.PauseNs))
	last = m.PauseNs[(n-1)%ring] / 1000
	if n-prev > ring {
		prev = n - ring
	}
	for i := prev; i < n; i++ {
		longest = max(longest, m.PauseNs[i%ring]/1000)
	}
	return last, longest
}

// Tick counts a frame. Once the interval has passed it logs the frame rate, heap size,
// allocation rate, GC pauses and the stage averages, then starts a new interval.
//
// Returns:
//   - bool: true when this tick logged
func (p *Profiler) Tick() bool {
	p.frames++
	now := time.Now()
	elapsed := now.Sub(p.since)
	if elapsed < p.interval {
		return false
	}

	runtime.ReadMemStats(&p.mem)
	secs := max(elapsed.Seconds(), 1e-9)
	lastPause, maxPause := gcPauses(&p.mem, p.prevGC)
	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		float64(p.frames)/secs,
		float64(p.mem.Alloc)/mib,
		float64(p.mem.TotalAlloc-p.prevAlloc)/mib/secs,
		p.mem.NumGC, lastPause, maxPause,
		float64(p.mem.Sys)/mib)
	if len(p.stageOrder) > 0 {
		log.Printf("[Profiler] Stages: %s", p.stageSummary())
	}

	p.frames = 0
	p.since = now
	p.prevGC = p.mem.NumGC
	p.prevAlloc = p.mem.TotalAlloc
	return true
}
