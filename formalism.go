package devs

// Formalism tags which DEVS variant a RootCoordinator runs. It governs
// two things uniformly across the whole processor tree: how a
// coordinator reduces its imminent children to the set that actually
// fires this step, and whether an atomic model's external arrival may
// carry more than one payload per port.
type Formalism int

const (
	// CDEVS is Classic DEVS: exactly one imminent child fires per
	// coordinator step, chosen by the coupled model's Select (or, if
	// unimplemented, the first imminent child in stable order). Input
	// ports carry at most one payload per step.
	CDEVS Formalism = iota
	// PDEVS is Parallel DEVS: every imminent child fires concurrently
	// each step, and input ports carry an ordered bag of payloads.
	PDEVS
)

func (f Formalism) String() string {
	if f == CDEVS {
		return "CDEVS"
	}
	return "PDEVS"
}
