package extract

// SetMaxEntrySize overrides the per-entry limit and returns a restore func.
func SetMaxEntrySize(n int64) func() {
	prev := maxEntrySize
	maxEntrySize = n

	return func() { maxEntrySize = prev }
}
