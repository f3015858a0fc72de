package devs

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/romain1189/devs/calendarqueue"
	"github.com/romain1189/devs/stats"
)

// Coordinator is the coupled processor (section 4.3): it owns one
// child Processor per child Model, a calendar-queue scheduler keyed by
// each child's TimeNext, and the three coupling relations that route
// messages between children and between this coordinator and its own
// parent. A Coordinator satisfies the same Processor protocol as a
// Simulator, which is what lets the tree nest to arbitrary depth.
type Coordinator struct {
	model     CoupledModel
	formalism Formalism

	children   map[string]Processor
	childModel map[string]Model
	order      []string // stable child-registration order, for CDEVS's default select

	eic []Coupling
	eoc []Coupling
	ic  []Coupling

	scheduler *calendarqueue.Queue[Processor]

	// active holds the children that fired this step, populated by
	// collect and consumed by the following transition. pendingInput
	// accumulates IC/EIC-routed bags per child name across the same
	// pair of calls.
	active       []Processor
	pendingInput map[string]Bag

	timeLast float64
	timeNext float64

	logger *slog.Logger
	stats  *stats.Collector
}

func newCoordinator(model CoupledModel, formalism Formalism, deps processorDeps) (*Coordinator, error) {
	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		model:      model,
		formalism:  formalism,
		children:   make(map[string]Processor),
		childModel: make(map[string]Model),
		eic:        model.EIC(),
		eoc:        model.EOC(),
		ic:         model.IC(),
		scheduler:  calendarqueue.New[Processor](),
		logger:     logger,
		stats:      deps.stats,
	}

	childByName := make(map[string]Model, len(model.Children()))
	for _, child := range model.Children() {
		if _, dup := childByName[child.Name()]; dup {
			return nil, newKernelError(ErrInvalidModel, model.Name(), 0,
				fmt.Sprintf("duplicate child name %q", child.Name()))
		}
		childByName[child.Name()] = child
	}

	ownInputs := portSet(model.InputPorts())
	ownOutputs := portSet(model.OutputPorts())

	isParentInput := func(p Port) bool { return p.Host == model.Name() && p.Direction == Input && ownInputs[p] }
	isParentOutput := func(p Port) bool { return p.Host == model.Name() && p.Direction == Output && ownOutputs[p] }
	isChildInput := func(p Port) bool { return childOwnsPort(childByName, p, Input) }
	isChildOutput := func(p Port) bool { return childOwnsPort(childByName, p, Output) }

	if err := validateCoupling(model.Name(), "EIC", c.eic, isParentInput, isChildInput); err != nil {
		return nil, err
	}
	if err := validateCoupling(model.Name(), "EOC", c.eoc, isChildOutput, isParentOutput); err != nil {
		return nil, err
	}
	if err := validateCoupling(model.Name(), "IC", c.ic, isChildOutput, isChildInput); err != nil {
		return nil, err
	}
	for _, cp := range c.ic {
		if cp.Source.Host == cp.Destination.Host {
			return nil, newKernelError(ErrInvalidModel, model.Name(), 0,
				fmt.Sprintf("IC coupling from %q to %q is a self-loop on %q", cp.Source.Name, cp.Destination.Name, cp.Source.Host))
		}
	}

	for _, child := range model.Children() {
		proc, err := newProcessor(child, formalism, deps)
		if err != nil {
			return nil, err
		}
		c.children[child.Name()] = proc
		c.childModel[child.Name()] = child
		c.order = append(c.order, child.Name())
	}

	return c, nil
}

func portSet(ports []Port) map[Port]bool {
	s := make(map[Port]bool, len(ports))
	for _, p := range ports {
		s[p] = true
	}
	return s
}

func childOwnsPort(children map[string]Model, p Port, dir Direction) bool {
	child, ok := children[p.Host]
	if !ok || p.Direction != dir {
		return false
	}
	var owned []Port
	if dir == Input {
		owned = child.InputPorts()
	} else {
		owned = child.OutputPorts()
	}
	for _, op := range owned {
		if op == p {
			return true
		}
	}
	return false
}

func validateCoupling(owner, kind string, couplings []Coupling, validSource, validDest func(Port) bool) error {
	for _, cp := range couplings {
		if !validSource(cp.Source) {
			return newKernelError(ErrInvalidPortHost, owner, 0,
				fmt.Sprintf("%s coupling has invalid source port %q on %q", kind, cp.Source.Name, cp.Source.Host))
		}
		if !validDest(cp.Destination) {
			return newKernelError(ErrInvalidPortHost, owner, 0,
				fmt.Sprintf("%s coupling has invalid destination port %q on %q", kind, cp.Destination.Name, cp.Destination.Host))
		}
	}
	return nil
}

// Name returns the coupled model's name.
func (c *Coordinator) Name() string { return c.model.Name() }

// TimeLast returns the simulation time of this subtree's last transition.
func (c *Coordinator) TimeLast() float64 { return c.timeLast }

// TimeNext returns the minimum TimeNext over every child in the
// subtree: the next instant at which this coordinator has work to do.
func (c *Coordinator) TimeNext() float64 { return c.timeNext }

// Walk returns the coordinator's children in stable registration
// order, letting a caller introspect the tree a RootCoordinator built.
func (c *Coordinator) Walk() []Processor {
	out := make([]Processor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.children[name])
	}
	return out
}

func (c *Coordinator) record(kind stats.EventKind) {
	if c.stats != nil {
		c.stats.Record(c.Name(), kind)
	}
}

func (c *Coordinator) init(t float64) (float64, error) {
	c.timeLast = t
	for _, name := range c.order {
		p := c.children[name]
		if _, err := p.init(t); err != nil {
			return 0, err
		}
		c.scheduler.Enqueue(p)
	}
	c.refreshTimeNext()
	c.logger.Debug("coordinator init", "model", c.Name(), "t", t, "time_next", c.timeNext)
	return c.timeNext, nil
}

func (c *Coordinator) refreshTimeNext() {
	if next, ok := c.scheduler.Peek(); ok {
		c.timeNext = next.TimeNext()
	} else {
		c.timeNext = math.Inf(1)
	}
}

// popImminent removes and returns every child currently scheduled at
// exactly t.
func (c *Coordinator) popImminent(t float64) []Processor {
	var imminent []Processor
	for {
		top, ok := c.scheduler.Peek()
		if !ok || top.TimeNext() != t {
			break
		}
		p, _ := c.scheduler.Pop()
		imminent = append(imminent, p)
	}
	return imminent
}

// selectWinner reduces a CDEVS tie set to the single child that fires,
// via the coupled model's Selector if it implements one, falling back
// to the first tied child in stable registration order.
func (c *Coordinator) selectWinner(tied []Processor) Processor {
	if len(tied) == 1 {
		return tied[0]
	}
	byName := make(map[string]Processor, len(tied))
	for _, p := range tied {
		byName[p.Name()] = p
	}
	if sel, ok := c.model.(Selector); ok {
		candidates := make([]Model, 0, len(tied))
		for _, name := range c.order {
			if _, isTied := byName[name]; isTied {
				candidates = append(candidates, c.childModel[name])
			}
		}
		chosen := sel.Select(candidates)
		c.record(stats.Select)
		if p, ok := byName[chosen.Name()]; ok {
			return p
		}
	}
	for _, name := range c.order {
		if p, ok := byName[name]; ok {
			return p
		}
	}
	return tied[0]
}

func (c *Coordinator) routeOutputs(msgs []Message, parentOut *[]Message, pending map[string]Bag) {
	for _, msg := range msgs {
		for _, cp := range c.eoc {
			if cp.Source == msg.Port {
				*parentOut = append(*parentOut, Message{Port: cp.Destination, Payload: msg.Payload})
			}
		}
		for _, cp := range c.ic {
			if cp.Source == msg.Port {
				bagFor(pending, cp.Destination.Host).Add(cp.Destination, msg.Payload)
			}
		}
	}
}

func (c *Coordinator) routeExternal(x Bag, pending map[string]Bag) {
	for _, port := range sortedPorts(x) {
		payloads := x[port]
		for _, cp := range c.eic {
			if cp.Source != port {
				continue
			}
			for _, payload := range payloads {
				bagFor(pending, cp.Destination.Host).Add(cp.Destination, payload)
			}
		}
	}
}

// sortedPorts returns b's ports in a stable order (by host, then name,
// then direction), so routing logic that ranges over a Bag never
// depends on Go's randomized map iteration order — required by the
// determinism invariant that identical inputs produce identical
// trajectories across runs.
func sortedPorts(b Bag) []Port {
	ports := make([]Port, 0, len(b))
	for p := range b {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Host != ports[j].Host {
			return ports[i].Host < ports[j].Host
		}
		if ports[i].Name != ports[j].Name {
			return ports[i].Name < ports[j].Name
		}
		return ports[i].Direction < ports[j].Direction
	})
	return ports
}

func bagFor(pending map[string]Bag, childName string) Bag {
	b, ok := pending[childName]
	if !ok {
		b = make(Bag)
		pending[childName] = b
	}
	return b
}

func (c *Coordinator) collect(t float64) ([]Message, error) {
	if t != c.timeNext {
		return nil, newKernelError(ErrBadSynchronization, c.Name(), t,
			fmt.Sprintf("collect called at time_next=%g, not %g", c.timeNext, t))
	}

	tied := c.popImminent(t)
	var active []Processor
	if c.formalism == CDEVS {
		winner := c.selectWinner(tied)
		for _, p := range tied {
			if p != winner {
				c.scheduler.Enqueue(p)
			}
		}
		active = []Processor{winner}
	} else {
		active = tied
	}
	c.active = active

	if c.pendingInput == nil {
		c.pendingInput = make(map[string]Bag)
	}

	var out []Message
	for _, p := range active {
		msgs, err := p.collect(t)
		if err != nil {
			return nil, err
		}
		c.routeOutputs(msgs, &out, c.pendingInput)
	}
	return out, nil
}

func (c *Coordinator) transition(t float64, x Bag) error {
	empty := x.Empty()
	switch {
	case t == c.timeNext:
		if c.pendingInput == nil {
			c.pendingInput = make(map[string]Bag)
		}
		if !empty {
			c.routeExternal(x, c.pendingInput)
		}
		if err := c.fireChildren(t, c.active); err != nil {
			return err
		}
		c.active = nil

	case t < c.timeNext && !empty:
		if c.pendingInput == nil {
			c.pendingInput = make(map[string]Bag)
		}
		c.routeExternal(x, c.pendingInput)
		if err := c.fireChildren(t, nil); err != nil {
			return err
		}

	default:
		return newKernelError(ErrBadSynchronization, c.Name(), t,
			fmt.Sprintf("transition called at t=%g with time_last=%g time_next=%g empty_bag=%v",
				t, c.timeLast, c.timeNext, empty))
	}

	c.refreshTimeNext()
	c.timeLast = t
	return nil
}

// fireChildren delivers this step's work to every child that needs it:
// the already-popped active set (imminent this step, possibly merged
// with routed input) plus any child that only received routed input.
func (c *Coordinator) fireChildren(t float64, active []Processor) error {
	fired := make(map[string]bool, len(active))
	for _, p := range active {
		fired[p.Name()] = true
		if err := p.transition(t, c.pendingInput[p.Name()]); err != nil {
			return err
		}
		c.scheduler.Enqueue(p)
	}
	pendingNames := make([]string, 0, len(c.pendingInput))
	for name := range c.pendingInput {
		pendingNames = append(pendingNames, name)
	}
	sort.Strings(pendingNames)

	for _, name := range pendingNames {
		if fired[name] {
			continue
		}
		p, ok := c.children[name]
		if !ok {
			return newKernelError(ErrNoSuchChild, c.Name(), t,
				fmt.Sprintf("routed input to unknown child %q", name))
		}
		c.scheduler.Delete(p)
		if err := p.transition(t, c.pendingInput[name]); err != nil {
			return err
		}
		c.scheduler.Enqueue(p)
	}
	c.pendingInput = nil
	return nil
}

func (c *Coordinator) tearDown() {
	for _, name := range c.order {
		c.children[name].tearDown()
	}
	if hook, ok := c.model.(TearDownHook); ok {
		hook.PostSimulationHook()
	}
}
