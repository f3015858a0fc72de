package devs

// Processor is the kernel-internal protocol shared by Simulator and
// Coordinator (section 4 of the design): every node in the tree, leaf
// or interior, answers init/collect/transition/tearDown the same way,
// which is what lets a Coordinator treat its children uniformly
// without knowing whether each one is itself atomic or coupled.
//
// init, collect, transition and tearDown are unexported: Processor is
// not meant to be implemented outside this package. Callers hold
// Processor values only for introspection (Name, TimeLast, TimeNext)
// by walking the tree a RootCoordinator built for them.
type Processor interface {
	Name() string
	TimeLast() float64
	// TimeNext satisfies calendarqueue.Item, letting a Coordinator's
	// scheduler hold Processor directly.
	TimeNext() float64

	init(t float64) (float64, error)
	collect(t float64) ([]Message, error)
	transition(t float64, x Bag) error
	tearDown()
}

// walker is implemented by Coordinator to expose its children for
// tree introspection; Simulator, a leaf, does not implement it.
type walker interface {
	Walk() []Processor
}

// Walk returns p and every descendant beneath it in the processor
// tree, in depth-first, stable registration order.
func Walk(p Processor) []Processor {
	out := []Processor{p}
	if w, ok := p.(walker); ok {
		for _, child := range w.Walk() {
			out = append(out, Walk(child)...)
		}
	}
	return out
}

func newProcessor(m Model, formalism Formalism, deps processorDeps) (Processor, error) {
	switch mm := m.(type) {
	case CoupledModel:
		return newCoordinator(mm, formalism, deps)
	case AtomicModel:
		return newSimulator(mm, formalism, deps), nil
	default:
		return nil, newKernelError(ErrInvalidModel, m.Name(), 0,
			"model implements neither AtomicModel nor CoupledModel")
	}
}
