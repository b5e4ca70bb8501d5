package sensor

import "time"

// upsertSample records one reading in a history slice kept in ascending
// time order. A sample with the same timestamp as the latest entry replaces
// it, so re-applying a replayed event is idempotent. Out-of-order samples
// are inserted at their sorted position.
func upsertSample[T any](hist []Sample[T], s Sample[T]) []Sample[T] {
	n := len(hist)
	if n == 0 || hist[n-1].Time.Before(s.Time) {
		return append(hist, s)
	}
	if hist[n-1].Time.Equal(s.Time) {
		hist[n-1].Value = s.Value
		return hist
	}

	// Rare: a replayed event older than the newest sample.
	i := n - 1
	for i > 0 && hist[i-1].Time.After(s.Time) {
		i--
	}
	if i > 0 && hist[i-1].Time.Equal(s.Time) {
		hist[i-1].Value = s.Value
		return hist
	}
	hist = append(hist, Sample[T]{})
	copy(hist[i+1:], hist[i:])
	hist[i] = s
	return hist
}

// pruneWindow drops samples older than the window while keeping one anchor
// sample at or before the cutoff, so a freshly pruned history still spans
// the full window for interpolation. When every sample is older than the
// cutoff only the newest survives.
func pruneWindow[T any](hist []Sample[T], now time.Time, window time.Duration) []Sample[T] {
	if len(hist) == 0 {
		return hist
	}
	cutoff := now.Add(-window)
	for i, s := range hist {
		if !s.Time.Before(cutoff) {
			if i <= 1 {
				return hist
			}
			return append(hist[:0], hist[i-1:]...)
		}
	}
	return append(hist[:0], hist[len(hist)-1])
}

// latestWithin reports samples no older than the window, preceded by the
// anchor sample just before it when one exists. It is the read-side
// counterpart of pruneWindow for a narrower presentation window.
func latestWithin[T any](hist []Sample[T], now time.Time, window time.Duration) []Sample[T] {
	if len(hist) == 0 {
		return nil
	}
	cutoff := now.Add(-window)
	for i, s := range hist {
		if !s.Time.Before(cutoff) {
			if i == 0 {
				return append([]Sample[T](nil), hist...)
			}
			return append([]Sample[T](nil), hist[i-1:]...)
		}
	}
	return []Sample[T]{hist[len(hist)-1]}
}
