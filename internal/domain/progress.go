package domain

// Progress is an observer invoked at batch/iteration boundaries with
// (completed, total). The core never blocks on it; nil is a valid value.
type Progress func(completed, total int)

// Report invokes the callback when non-nil.
func (p Progress) Report(completed, total int) {
	if p != nil {
		p(completed, total)
	}
}
