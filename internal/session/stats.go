package session

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencyWindow bounds how many tick latencies feed Stats.
const latencyWindow = 256

// Stats summarizes tick throughput.
type Stats struct {
	Ticks    int
	Errors   int // ticks whose measurement returned an error
	Failures int // device failures
	Mean     time.Duration
	StdDev   time.Duration
}

type stats struct {
	ticks, errors, failures int
	latencies               []float64 // milliseconds, ring buffer
	next                    int
}

func (s *stats) record(d time.Duration, failed bool) {
	s.ticks++
	if failed {
		s.errors++
	}
	ms := float64(d) / float64(time.Millisecond)
	if len(s.latencies) < latencyWindow {
		s.latencies = append(s.latencies, ms)
		return
	}
	s.latencies[s.next] = ms
	s.next = (s.next + 1) % latencyWindow
}

func (s *stats) snapshot() Stats {
	out := Stats{Ticks: s.ticks, Errors: s.errors, Failures: s.failures}
	if len(s.latencies) == 0 {
		return out
	}
	mean, std := stat.MeanStdDev(s.latencies, nil)
	if len(s.latencies) < 2 {
		std = 0
	}
	out.Mean = time.Duration(mean * float64(time.Millisecond))
	out.StdDev = time.Duration(std * float64(time.Millisecond))
	return out
}

// Stats returns tick counts and latency over the most recent ticks.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.snapshot()
}
