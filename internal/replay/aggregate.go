package replay

import "io"

// ReplayEventsFile parses r into per-run records, identical to
// ParseEvents. Kept as a separate entry point so callers describe
// intent ("replay this file") distinctly from the lower-level parser.
func ReplayEventsFile(r io.Reader, runIDFilter string) ([]RunRecord, error) {
	return ParseEvents(r, runIDFilter)
}

// AggregateRuns is an identity pass today: grouping already happens in
// ParseEvents. It exists as the seam a future cross-run aggregation
// (e.g. merging retried attempts of the same logical task) would hang
// off without touching callers.
func AggregateRuns(runs []RunRecord) []RunRecord {
	return runs
}
