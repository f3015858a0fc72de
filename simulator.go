package devs

import (
	"fmt"
	"log/slog"

	"github.com/romain1189/devs/stats"
)

// Simulator is the atomic processor (section 4.2): it wraps a single
// AtomicModel and answers the kernel protocol by calling straight
// through to the model's four (or five, with ConfluentModel) hooks.
type Simulator struct {
	model     AtomicModel
	formalism Formalism
	confluent ConfluentModel

	inputPorts  map[Port]bool
	outputPorts map[Port]bool

	elapsed  float64
	timeLast float64
	timeNext float64

	logger *slog.Logger
	stats  *stats.Collector
}

func newSimulator(model AtomicModel, formalism Formalism, deps processorDeps) *Simulator {
	inputs := make(map[Port]bool, len(model.InputPorts()))
	for _, p := range model.InputPorts() {
		inputs[p] = true
	}
	outputs := make(map[Port]bool, len(model.OutputPorts()))
	for _, p := range model.OutputPorts() {
		outputs[p] = true
	}

	var confluent ConfluentModel
	if formalism == PDEVS {
		if cm, ok := model.(ConfluentModel); ok {
			confluent = cm
		}
	}

	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Simulator{
		model:       model,
		formalism:   formalism,
		confluent:   confluent,
		inputPorts:  inputs,
		outputPorts: outputs,
		logger:      logger,
		stats:       deps.stats,
	}
}

// Name returns the wrapped model's name.
func (s *Simulator) Name() string { return s.model.Name() }

// TimeLast returns the simulation time of this model's last transition.
func (s *Simulator) TimeLast() float64 { return s.timeLast }

// TimeNext returns the simulation time of this model's next scheduled
// internal event.
func (s *Simulator) TimeNext() float64 { return s.timeNext }

func (s *Simulator) record(kind stats.EventKind) {
	if s.stats != nil {
		s.stats.Record(s.Name(), kind)
	}
}

func (s *Simulator) timeAdvance() float64 {
	ta := s.model.TimeAdvance()
	s.record(stats.TimeAdvance)
	return ta
}

func (s *Simulator) init(t float64) (float64, error) {
	s.elapsed = 0
	if im, ok := s.model.(InitialElapsed); ok {
		s.elapsed = im.InitialElapsed()
	}
	s.timeLast = t - s.elapsed
	s.timeNext = s.timeLast + s.timeAdvance()
	s.logger.Debug("simulator init", "model", s.Name(), "t", t, "time_next", s.timeNext)
	return s.timeNext, nil
}

func (s *Simulator) collect(t float64) (out []Message, err error) {
	if t != s.timeNext {
		return nil, newKernelError(ErrBadSynchronization, s.Name(), t,
			fmt.Sprintf("collect called at time_next=%g, not %g", s.timeNext, t))
	}

	defer func() {
		if r := recover(); r != nil {
			err = newUserTransitionFailure(s.Name(), t, "output", fmt.Errorf("%v", r))
		}
	}()

	post := func(port Port, value any) {
		if err != nil {
			return
		}
		if verr := s.validateOutputPort(port); verr != nil {
			err = verr
			return
		}
		if value != nil {
			out = append(out, Message{Port: port, Payload: value})
		}
	}
	s.model.Output(post)
	s.record(stats.Output)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Simulator) validateOutputPort(port Port) error {
	if port.Host != s.Name() {
		return newKernelError(ErrInvalidPortHost, s.Name(), s.timeNext,
			fmt.Sprintf("output posted on port %q owned by %q", port.Name, port.Host))
	}
	if port.Direction != Output {
		return newKernelError(ErrInvalidPortType, s.Name(), s.timeNext,
			fmt.Sprintf("output posted on non-output port %q", port.Name))
	}
	if !s.outputPorts[port] {
		return newKernelError(ErrUnknownPort, s.Name(), s.timeNext,
			fmt.Sprintf("output posted on unknown port %q", port.Name))
	}
	return nil
}

func (s *Simulator) validateInputBag(t float64, x Bag) error {
	for port, payloads := range x {
		if len(payloads) == 0 {
			continue
		}
		if port.Host != s.Name() {
			return newKernelError(ErrInvalidPortHost, s.Name(), t,
				fmt.Sprintf("input delivered to port %q owned by %q", port.Name, port.Host))
		}
		if port.Direction != Input {
			return newKernelError(ErrInvalidPortType, s.Name(), t,
				fmt.Sprintf("input delivered to non-input port %q", port.Name))
		}
		if !s.inputPorts[port] {
			return newKernelError(ErrUnknownPort, s.Name(), t,
				fmt.Sprintf("input delivered to unknown port %q", port.Name))
		}
		if s.formalism == CDEVS && len(payloads) > 1 {
			return newKernelError(ErrInvalidPortType, s.Name(), t,
				fmt.Sprintf("CDEVS port %q received %d payloads in one step, at most 1 allowed", port.Name, len(payloads)))
		}
	}
	return nil
}

func (s *Simulator) transition(t float64, x Bag) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newUserTransitionFailure(s.Name(), t, "transition", fmt.Errorf("%v", r))
		}
	}()

	empty := x.Empty()
	switch {
	case t == s.timeNext && empty:
		s.model.InternalTransition()
		s.record(stats.InternalTransition)

	case t == s.timeNext && !empty:
		if verr := s.validateInputBag(t, x); verr != nil {
			return verr
		}
		if s.confluent != nil {
			s.confluent.ConfluentTransition(x)
			s.record(stats.ConfluentTransition)
		} else {
			s.model.InternalTransition()
			s.record(stats.InternalTransition)
			s.model.ExternalTransition(0, x)
			s.record(stats.ExternalTransition)
		}

	case t < s.timeNext && !empty:
		if verr := s.validateInputBag(t, x); verr != nil {
			return verr
		}
		s.model.ExternalTransition(t-s.timeLast, x)
		s.record(stats.ExternalTransition)

	default:
		return newKernelError(ErrBadSynchronization, s.Name(), t,
			fmt.Sprintf("transition called at t=%g with time_last=%g time_next=%g empty_bag=%v",
				t, s.timeLast, s.timeNext, empty))
	}

	s.elapsed = 0
	s.timeLast = t
	s.timeNext = t + s.timeAdvance()
	return nil
}

func (s *Simulator) tearDown() {
	if hook, ok := s.model.(TearDownHook); ok {
		hook.PostSimulationHook()
	}
}
