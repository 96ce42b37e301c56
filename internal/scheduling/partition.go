package scheduling

// Range is a contiguous 1-based inclusive interval over a tenant's
// pending-order backlog.
type Range struct {
	Start int
	End   int
}

// PartitionRanges splits [1, total] into contiguous non-overlapping ranges of
// at most rangeSize, covering every index exactly once. Deterministic; the
// last range is the only one allowed to be short.
func PartitionRanges(total, rangeSize int) []Range {
	if total <= 0 {
		return nil
	}
	if rangeSize <= 0 {
		rangeSize = 50
	}
	out := make([]Range, 0, (total+rangeSize-1)/rangeSize)
	for start := 1; start <= total; start += rangeSize {
		end := start + rangeSize - 1
		if end > total {
			end = total
		}
		out = append(out, Range{Start: start, End: end})
	}
	return out
}
