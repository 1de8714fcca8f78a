package utils

import (
	"fmt"
	"sync"
	"time"
)

// rateSmoothing is the weight kept from the previous estimate.
const rateSmoothing = 0.7

// RateMeter estimates the throughput of a monotonically increasing byte
// counter, smoothed with an exponential moving average.
type RateMeter struct {
	mu        sync.Mutex
	lastCount uint64
	lastTime  time.Time
	rate      float64
}

// Sample records the counter value at now and returns the smoothed rate in
// bytes per second. The first sample only sets the baseline.
func (m *RateMeter) Sample(count uint64, now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastTime.IsZero() || count < m.lastCount {
		m.lastCount, m.lastTime = count, now
		return m.rate
	}

	elapsed := now.Sub(m.lastTime)
	if elapsed <= 0 {
		return m.rate
	}

	current := float64(count-m.lastCount) / elapsed.Seconds()
	if m.rate > 0 {
		m.rate = m.rate*rateSmoothing + current*(1-rateSmoothing)
	} else {
		m.rate = current
	}

	m.lastCount, m.lastTime = count, now
	return m.rate
}

// Rate returns the last estimate in bytes per second.
func (m *RateMeter) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// FormatSize formats bytes to human readable string
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatBitrate formats a byte rate as bits per second, the unit media
// bitrates are quoted in.
func FormatBitrate(bytesPerSecond float64) string {
	bits := bytesPerSecond * 8
	switch {
	case bits >= 1e6:
		return fmt.Sprintf("%.1f Mbps", bits/1e6)
	case bits >= 1e3:
		return fmt.Sprintf("%.0f kbps", bits/1e3)
	default:
		return fmt.Sprintf("%.0f bps", bits)
	}
}

// FormatTimeDuration formats duration to human readable string
func FormatTimeDuration(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	} else {
		return fmt.Sprintf("%ds", seconds)
	}
}

// TruncateString shortens s to maxLen runes, ending in an ellipsis.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
