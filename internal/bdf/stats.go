package bdf

// Stats accumulates counters over the lifetime of a Solver.
type Stats struct {
	Steps           int
	ErrTestFailures int
	ConvFailures    int
	RHSEvals        int
	JacEvals        int
	NonlinSolves    int
	NonlinIters     int
	OrderChanges    int

	InitialStep float64
	LastStep    float64
	LastOrder   int
	CurrentTime float64
}
