package devs

// Message pairs a payload with the port it arrived on or is destined
// for; direction is implied by the port itself.
type Message struct {
	Port    Port
	Payload any
}

// Bag maps each input port to the payloads pending delivery on it,
// produced by merging simultaneous inbound messages addressed to that
// port. Within a port's entry, payloads are kept in arrival order.
// Under PDEVS an entry may hold any number of payloads; under CDEVS the
// Simulator rejects an entry holding more than one.
type Bag map[Port][]any

// Add appends payload to the bag entry for port, creating it if
// necessary.
func (b Bag) Add(port Port, payload any) {
	b[port] = append(b[port], payload)
}

// Merge folds other into b in place, preserving arrival order (other's
// entries are appended after b's existing entries for the same port).
func (b Bag) Merge(other Bag) {
	for port, payloads := range other {
		b[port] = append(b[port], payloads...)
	}
}

// Empty reports whether the bag carries no payloads on any port.
func (b Bag) Empty() bool {
	for _, payloads := range b {
		if len(payloads) > 0 {
			return false
		}
	}
	return true
}
