package preflight

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Target names a directory to check.
type Target struct {
	Name string
	Path string
}

// Run checks that every input is a readable directory, that every output is
// writable or creatable, and that each output filesystem has at least
// minFreeMiB free. A minFreeMiB of zero skips the space checks.
func Run(inputs, outputs []Target, minFreeMiB int) []Result {
	results := make([]Result, 0, len(inputs)+2*len(outputs))
	for _, in := range inputs {
		results = append(results, CheckReadable(in.Name, in.Path))
	}
	for _, out := range outputs {
		results = append(results, CheckWritableTarget(out.Name, out.Path))
	}
	if minFreeMiB > 0 {
		for _, out := range outputs {
			results = append(results, CheckFreeSpace(out.Name+" free space", out.Path, minFreeMiB))
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
