package profiler

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStageTiming(t *testing.T) {
	p := NewProfiler()

	p.BeginStage("GeometryPass")
	time.Sleep(2 * time.Millisecond)
	p.BeginStage("Tonemap") // ends GeometryPass
	p.EndStage()
	p.EndStage() // nothing open

	assert.GreaterOrEqual(t, p.StageAverage("GeometryPass"), 2*time.Millisecond)
	assert.Equal(t, []string{"GeometryPass", "Tonemap"}, p.stageOrder)
	assert.Equal(t, 1, p.stageCounts["Tonemap"])
	assert.Zero(t, p.StageAverage("Present"))

	summary := p.stageSummary()
	assert.Contains(t, summary, "GeometryPass: ")
	assert.Contains(t, summary, " | Tonemap: ")
	assert.Empty(t, p.stageOrder)
	assert.Zero(t, p.StageAverage("GeometryPass"))
}

func TestTickInterval(t *testing.T) {
	p := NewProfiler()
	p.interval = time.Hour
	assert.False(t, p.Tick())

	p.interval = 0
	p.BeginStage("Present")
	p.EndStage()
	assert.True(t, p.Tick())
	assert.Empty(t, p.stageOrder)
}

func TestGCPauses(t *testing.T) {
	var m runtime.MemStats
	last, longest := gcPauses(&m, 0)
	assert.Zero(t, last)
	assert.Zero(t, longest)

	m.NumGC = 3
	m.PauseNs[0] = 5000
	m.PauseNs[1] = 90000
	m.PauseNs[2] = 7000
	last, longest = gcPauses(&m, 0)
	assert.Equal(t, uint64(7), last)
	assert.Equal(t, uint64(90), longest)

	_, longest = gcPauses(&m, 2)
	assert.Equal(t, uint64(7), longest)

	m.NumGC = 300
	m.PauseNs[299%256] = 1000
	last, _ = gcPauses(&m, 0)
	assert.Equal(t, uint64(1), last)
}
