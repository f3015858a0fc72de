package devs

import "fmt"

// KernelErrorCode classifies a kernel-detected fault. All kernel
// errors are fatal: nothing is retried, per the kernel's error
// handling policy.
type KernelErrorCode string

const (
	// ErrInvalidPortHost marks a message whose port is not owned by
	// the model it was addressed to.
	ErrInvalidPortHost KernelErrorCode = "INVALID_PORT_HOST"
	// ErrInvalidPortType marks an output port used as an input (or
	// vice versa).
	ErrInvalidPortType KernelErrorCode = "INVALID_PORT_TYPE"
	// ErrUnknownPort marks a port lookup by name that missed.
	ErrUnknownPort KernelErrorCode = "UNKNOWN_PORT"
	// ErrNoSuchChild marks a child lookup by name that missed.
	ErrNoSuchChild KernelErrorCode = "NO_SUCH_CHILD"
	// ErrBadSynchronization marks a processor receiving collect or
	// transition at a time inconsistent with its time_last/time_next.
	ErrBadSynchronization KernelErrorCode = "BAD_SYNCHRONIZATION"
	// ErrUserTransitionFailure marks a failure signaled by user
	// delta/lambda/ta code.
	ErrUserTransitionFailure KernelErrorCode = "USER_TRANSITION_FAILURE"
	// ErrInvalidModel marks a Model that is neither an AtomicModel nor
	// a CoupledModel, or a CoupledModel with duplicate child names or
	// an IC coupling that loops from a child back to itself. Couplings
	// whose ports are not owned by the right node are reported as
	// ErrInvalidPortHost instead.
	ErrInvalidModel KernelErrorCode = "INVALID_MODEL"
)

// KernelError is the typed, fatal error the kernel raises for every
// condition in section 7 of the design: a malformed coupling, a
// processor driven out of sequence, or a user hook that failed.
// Processor and Time name the offending processor and simulation time
// so a diagnostic can point straight at the fault.
type KernelError struct {
	Code      KernelErrorCode
	Message   string
	Processor string
	Time      float64
	Cause     error
}

func (e *KernelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("devs: %s at %s (t=%g): %s: %v", e.Code, e.Processor, e.Time, e.Message, e.Cause)
	}
	return fmt.Sprintf("devs: %s at %s (t=%g): %s", e.Code, e.Processor, e.Time, e.Message)
}

// Unwrap exposes a wrapped user error so errors.As/errors.Is work
// against UserTransitionFailure causes.
func (e *KernelError) Unwrap() error {
	return e.Cause
}

func newKernelError(code KernelErrorCode, processor string, t float64, message string) *KernelError {
	return &KernelError{Code: code, Message: message, Processor: processor, Time: t}
}

func newUserTransitionFailure(processor string, t float64, hook string, cause error) *KernelError {
	return &KernelError{
		Code:      ErrUserTransitionFailure,
		Message:   fmt.Sprintf("user %s failed", hook),
		Processor: processor,
		Time:      t,
		Cause:     cause,
	}
}
