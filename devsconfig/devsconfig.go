// Package devsconfig loads a flat generator/receiver topology from
// YAML and builds it into a devs.Model ready for a RootCoordinator.
// It lives outside the devs package deliberately: the kernel proper
// has no file format or builder dependency of its own (section 6), and
// nothing under devs imports this package.
package devsconfig

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/romain1189/devs"
	"github.com/romain1189/devs/examples"
)

// PortSpec names a port by its owning model and port name.
type PortSpec struct {
	Host string `yaml:"host"`
	Name string `yaml:"name"`
}

// CouplingSpec describes one coupling edge. Only "ic" is currently
// supported: this loader builds flat topologies of generators and
// receivers, which have no parent to route EIC/EOC through.
type CouplingSpec struct {
	Kind        string   `yaml:"kind"`
	Source      PortSpec `yaml:"source"`
	Destination PortSpec `yaml:"destination"`
}

// GeneratorSpec describes one Generator instance.
type GeneratorSpec struct {
	Name   string  `yaml:"name"`
	FireAt float64 `yaml:"fire_at"`
}

// ReceiverSpec describes one Receiver instance.
type ReceiverSpec struct {
	Name string `yaml:"name"`
}

// Topology is the top-level document shape.
type Topology struct {
	Name       string          `yaml:"name"`
	Formalism  string          `yaml:"formalism"` // "cdevs" or "pdevs"
	Generators []GeneratorSpec `yaml:"generators"`
	Receivers  []ReceiverSpec  `yaml:"receivers"`
	Couplings  []CouplingSpec  `yaml:"couplings"`
}

// Load decodes a Topology from r, rejecting unknown fields so a typo
// in a hand-edited config file surfaces immediately instead of
// silently building the wrong network.
func Load(r io.Reader) (*Topology, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var top Topology
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("devsconfig: decode topology: %w", err)
	}
	return &top, nil
}

// Build instantiates top into a devs.Model and the devs.Formalism it
// requested, ready to hand to devs.NewRootCoordinator.
func Build(top *Topology) (devs.Model, devs.Formalism, error) {
	formalism, err := parseFormalism(top.Formalism)
	if err != nil {
		return nil, 0, err
	}

	gens := make(map[string]*examples.Generator, len(top.Generators))
	recvs := make(map[string]*examples.Receiver, len(top.Receivers))
	children := make([]devs.Model, 0, len(top.Generators)+len(top.Receivers))

	for _, g := range top.Generators {
		if _, dup := gens[g.Name]; dup {
			return nil, 0, fmt.Errorf("devsconfig: duplicate generator name %q", g.Name)
		}
		model := examples.NewGenerator(g.Name, g.FireAt)
		gens[g.Name] = model
		children = append(children, model)
	}
	for _, r := range top.Receivers {
		if _, dup := recvs[r.Name]; dup {
			return nil, 0, fmt.Errorf("devsconfig: duplicate receiver name %q", r.Name)
		}
		model := examples.NewReceiver(r.Name)
		recvs[r.Name] = model
		children = append(children, model)
	}

	ic := make([]devs.Coupling, 0, len(top.Couplings))
	for _, cp := range top.Couplings {
		if cp.Kind != "ic" {
			return nil, 0, fmt.Errorf("devsconfig: coupling kind %q not supported in a flat topology, only \"ic\"", cp.Kind)
		}
		source, err := resolveOutputPort(gens, cp.Source)
		if err != nil {
			return nil, 0, err
		}
		dest, err := resolveInputPort(recvs, cp.Destination)
		if err != nil {
			return nil, 0, err
		}
		ic = append(ic, devs.Coupling{Kind: devs.IC, Source: source, Destination: dest})
	}

	return &flatModel{name: top.Name, children: children, ic: ic}, formalism, nil
}

func parseFormalism(s string) (devs.Formalism, error) {
	switch s {
	case "", "pdevs":
		return devs.PDEVS, nil
	case "cdevs":
		return devs.CDEVS, nil
	default:
		return 0, fmt.Errorf("devsconfig: unknown formalism %q, want \"cdevs\" or \"pdevs\"", s)
	}
}

func resolveOutputPort(gens map[string]*examples.Generator, spec PortSpec) (devs.Port, error) {
	g, ok := gens[spec.Host]
	if !ok {
		return devs.Port{}, fmt.Errorf("devsconfig: coupling source %q.%q is not a declared generator", spec.Host, spec.Name)
	}
	return g.OutPort(), nil
}

func resolveInputPort(recvs map[string]*examples.Receiver, spec PortSpec) (devs.Port, error) {
	r, ok := recvs[spec.Host]
	if !ok {
		return devs.Port{}, fmt.Errorf("devsconfig: coupling destination %q.%q is not a declared receiver", spec.Host, spec.Name)
	}
	return r.InPort(), nil
}

// flatModel is a bare CoupledModel over the decoded children: it owns
// no ports of its own, since a topology loaded this way is always the
// top of its tree.
type flatModel struct {
	name     string
	children []devs.Model
	ic       []devs.Coupling
}

func (f *flatModel) Name() string            { return f.name }
func (f *flatModel) InputPorts() []devs.Port  { return nil }
func (f *flatModel) OutputPorts() []devs.Port { return nil }
func (f *flatModel) Children() []devs.Model   { return f.children }
func (f *flatModel) EIC() []devs.Coupling     { return nil }
func (f *flatModel) EOC() []devs.Coupling     { return nil }
func (f *flatModel) IC() []devs.Coupling      { return f.ic }
