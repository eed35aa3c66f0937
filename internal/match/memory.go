package match

import "runtime"

// memSampler takes a process-memory baseline before an agent
// invocation and a second sample after. This is
// explicitly best-effort and process-local, not a security boundary;
// a production deployment would replace it with per-process OS-enforced limits.
type memSampler struct{}

func (memSampler) baseline() uint64 {
	runtime.GC()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

func (memSampler) sample() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

// delta returns max(0, after-before); memory
// reclaimed between samples never produces a negative contribution.
func delta(before, after uint64) int64 {
	if after <= before {
		return 0
	}
	return int64(after - before)
}
