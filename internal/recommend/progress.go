package recommend

// Progress receives incremental progress of a long phase.
type Progress interface {
	Add(n int) error
	Finish() error
}

// ProgressFactory starts a Progress for total steps.
type ProgressFactory func(description string, total int) Progress

type noopProgress struct{}

func (noopProgress) Add(int) error { return nil }
func (noopProgress) Finish() error { return nil }
