package sync

import "time"

// Stats is the outcome of a sync run. It is always returned, even when
// individual items failed: callers inspect Failed rather than relying on
// an error to detect partial failure.
type Stats struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ProgressStats carries optional throughput figures for progress reports.
type ProgressStats struct {
	Elapsed time.Duration
	Rate    float64
	ETA     time.Duration
}

// ProgressFunc receives advisory progress reports. It is fire-and-forget:
// a nil func is valid and dropping reports never affects correctness.
type ProgressFunc func(percent int, message string, stats *ProgressStats)

// progressTracker turns processed counts into ProgressFunc calls.
type progressTracker struct {
	fn      ProgressFunc
	started time.Time
	total   int64
}

func newProgressTracker(fn ProgressFunc, total int64) *progressTracker {
	return &progressTracker{fn: fn, started: time.Now(), total: total}
}

func (p *progressTracker) report(processed int64, message string) {
	if p.fn == nil {
		return
	}
	percent := 100
	if p.total > 0 {
		percent = int(processed * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
	}

	elapsed := time.Since(p.started)
	stats := &ProgressStats{Elapsed: elapsed}
	if elapsed > 0 && processed > 0 {
		stats.Rate = float64(processed) / elapsed.Seconds()
		if remaining := p.total - processed; remaining > 0 && stats.Rate > 0 {
			stats.ETA = time.Duration(float64(remaining)/stats.Rate) * time.Second
		}
	}
	p.fn(percent, message, stats)
}
