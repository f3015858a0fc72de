package devs

// Model is the common supertype of AtomicModel and CoupledModel: a
// named node in the hierarchy that owns a fixed set of ports. A
// CoupledModel's own InputPorts/OutputPorts are the ports its EIC and
// EOC couplings treat as "parent_input"/"parent_output" — every model,
// atomic or coupled, owns ports the same way, so coupling validation
// at any level of the hierarchy needs only the Model interface.
type Model interface {
	Name() string
	InputPorts() []Port
	OutputPorts() []Port
}

// AtomicModel is the capability set a leaf model must implement. The
// kernel never requires a particular base type or registration
// mechanism for these methods (see DESIGN.md on the class-level DSL
// redesign); any type satisfying the interface is a valid atomic
// model.
//
// ExternalTransition and the bag passed to it hold at most one payload
// per port under CDEVS and an arbitrary number under PDEVS; the
// distinction is enforced by the Simulator, not by this interface.
// Output posts values by calling post once per nonnull output value;
// the Simulator harvests exactly those calls.
type AtomicModel interface {
	Model

	ExternalTransition(elapsed float64, x Bag)
	InternalTransition()
	Output(post func(port Port, value any))
	TimeAdvance() float64
}

// InitialElapsed is optionally implemented by an AtomicModel to seed a
// nonzero elapsed time on the first init, e.g. when the model
// represents a process resumed partway through its current state. A
// model that doesn't implement it starts with elapsed 0.
type InitialElapsed interface {
	AtomicModel
	InitialElapsed() float64
}

// ConfluentModel is optionally implemented by an AtomicModel to
// override the default PDEVS confluent-transition rule (internal
// transition followed by an external transition with elapsed 0).
// Classic DEVS has no confluent function of its own: the kernel never
// probes for ConfluentModel when running in CDEVS mode, since the
// coordinator's select already disambiguates which child fires.
type ConfluentModel interface {
	AtomicModel
	ConfluentTransition(x Bag)
}

// TearDownHook is optionally implemented by an AtomicModel or
// CoupledModel for a post-simulation cleanup callback.
type TearDownHook interface {
	PostSimulationHook()
}

// CoupledModel is the capability set an interior node must implement:
// a static list of children and the three coupling relations between
// them.
type CoupledModel interface {
	Model

	Children() []Model
	EIC() []Coupling
	EOC() []Coupling
	IC() []Coupling
}

// Selector is optionally implemented by a CoupledModel to break ties
// among multiple imminent children under CDEVS. Candidates are given
// in stable (child-registration) order. If a CoupledModel does not
// implement Selector, the kernel selects the first imminent child in
// that same stable order.
type Selector interface {
	Select(imminents []Model) Model
}

// Base is an embeddable helper implementing the elapsed/sigma/time
// bookkeeping common to hand-written atomic models, and the default
// TimeAdvance() that returns Sigma. Models wanting a different
// time-advance rule define their own TimeAdvance method, which shadows
// the embedded one.
type Base struct {
	ModelName string
	Elapsed   float64
	Sigma     float64
	Time      float64
}

// Name returns the model's name.
func (b *Base) Name() string { return b.ModelName }

// TimeAdvance returns Sigma, the conventional default time-advance
// function. Sigma is advisory: the kernel calls TimeAdvance(), never
// reads Sigma directly, so overriding TimeAdvance always wins.
func (b *Base) TimeAdvance() float64 { return b.Sigma }
