package auth

import (
	"sync"
	"time"
)

// Metrics counts authentication and extraction activity. Counters are
// copied out through GetSnapshot for the health endpoint.
type Metrics struct {
	mu sync.RWMutex

	VerifyAttempts  int64
	VerifySucceeded int64
	VerifyDenied    int64
	VerifyErrored   int64

	ExtractionsML            int64
	ExtractionsDeterministic int64
	MLFallbacks              int64

	CacheWriteFailures int64

	TotalProcessingTime time.Duration
	LastProcessTime     time.Time
	StartTime           time.Time
}

// GetSnapshot returns a copy safe to serialize.
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		VerifyAttempts:           m.VerifyAttempts,
		VerifySucceeded:          m.VerifySucceeded,
		VerifyDenied:             m.VerifyDenied,
		VerifyErrored:            m.VerifyErrored,
		ExtractionsML:            m.ExtractionsML,
		ExtractionsDeterministic: m.ExtractionsDeterministic,
		MLFallbacks:              m.MLFallbacks,
		CacheWriteFailures:       m.CacheWriteFailures,
		TotalProcessingTime:      m.TotalProcessingTime,
		LastProcessTime:          m.LastProcessTime,
		StartTime:                m.StartTime,
	}
}

func (m *Metrics) recordVerify(authenticated bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifyAttempts++
	if authenticated {
		m.VerifySucceeded++
	} else {
		m.VerifyDenied++
	}
	m.TotalProcessingTime += duration
	m.LastProcessTime = time.Now()
}

func (m *Metrics) recordVerifyError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifyAttempts++
	m.VerifyErrored++
}

func (m *Metrics) recordExtraction(usedML bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if usedML {
		m.ExtractionsML++
	} else {
		m.ExtractionsDeterministic++
	}
}

func (m *Metrics) recordMLFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MLFallbacks++
}

func (m *Metrics) recordCacheWriteFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheWriteFailures++
}
