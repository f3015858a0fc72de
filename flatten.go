package devs

import "sort"

// Flatten implements the optional flattening optimization of section
// 4.3: it rebuilds root as an equivalent CoupledModel whose children
// are every atomic model transitively reachable from the original
// hierarchy, with EIC/EOC/IC composed by transitive closure so the
// kernel protocol runs over one flat coordinator instead of nested
// ones. Root's own exposed ports are unchanged, so a flattened model
// is substitutable wherever the original was.
//
// A Selector declared on any interior coupled node survives
// flattening: Flatten composes them into one Selector that, given a
// tie set, delegates to the innermost original node whose reachable
// atomic children fully cover that set. Flattened children are
// ordered by name, since a single linearization of an arbitrary tree
// has no canonical "original order" — a caller whose CDEVS tie-breaks
// depend on stable registration order rather than an explicit Selector
// should not flatten.
func Flatten(root CoupledModel) (CoupledModel, error) {
	state := &flattenState{atomics: map[string]Model{}}

	childInput := map[Port][]Port{}
	childOutput := map[Port][]Port{}
	for _, c := range root.Children() {
		inM, outM, _, err := resolveNode(state, c)
		if err != nil {
			return nil, err
		}
		mergePortMap(childInput, inM)
		mergePortMap(childOutput, outM)
	}

	var eic, eoc []Coupling
	for _, cp := range root.EIC() {
		for _, dest := range childInput[cp.Destination] {
			eic = append(eic, Coupling{Kind: EIC, Source: cp.Source, Destination: dest})
		}
	}
	for _, cp := range root.EOC() {
		for _, src := range childOutput[cp.Source] {
			eoc = append(eoc, Coupling{Kind: EOC, Source: src, Destination: cp.Destination})
		}
	}
	composeIC(state, root.IC(), childOutput, childInput)

	names := make([]string, 0, len(state.atomics))
	for name := range state.atomics {
		names = append(names, name)
	}
	sort.Strings(names)
	children := make([]Model, 0, len(names))
	for _, name := range names {
		children = append(children, state.atomics[name])
	}

	base := &flattenedModel{
		name:     root.Name(),
		inputs:   root.InputPorts(),
		outputs:  root.OutputPorts(),
		children: children,
		eic:      eic,
		eoc:      eoc,
		ic:       state.ic,
	}
	if sel, ok := root.(Selector); ok {
		covers := make(map[string]bool, len(state.atomics))
		for name := range state.atomics {
			covers[name] = true
		}
		state.selectorCandidates = append(state.selectorCandidates, selectorCandidate{selector: sel, covers: covers})
	}
	if len(state.selectorCandidates) == 0 {
		return base, nil
	}
	return &selectableFlattenedModel{
		flattenedModel: base,
		selector:       &composedSelector{candidates: state.selectorCandidates},
	}, nil
}

type selectorCandidate struct {
	selector Selector
	covers   map[string]bool
}

type flattenState struct {
	atomics            map[string]Model
	ic                 []Coupling
	selectorCandidates []selectorCandidate // innermost node discovered first
}

// resolveNode walks node (atomic or coupled) and returns, relative to
// node's own externally-visible ports, the set of ultimate atomic
// ports each one fans out to, plus the names of every atomic leaf
// reachable beneath it. Coupled descendants register their own IC
// edges (translated to atomic ports) and Selector directly into state.
func resolveNode(state *flattenState, node Model) (inputMap, outputMap map[Port][]Port, covered map[string]bool, err error) {
	switch n := node.(type) {
	case CoupledModel:
		childInput := map[Port][]Port{}
		childOutput := map[Port][]Port{}
		covered = map[string]bool{}
		for _, c := range n.Children() {
			inM, outM, cov, err := resolveNode(state, c)
			if err != nil {
				return nil, nil, nil, err
			}
			mergePortMap(childInput, inM)
			mergePortMap(childOutput, outM)
			for name := range cov {
				covered[name] = true
			}
		}

		inputMap = map[Port][]Port{}
		for _, cp := range n.EIC() {
			inputMap[cp.Source] = append(inputMap[cp.Source], childInput[cp.Destination]...)
		}
		outputMap = map[Port][]Port{}
		for _, cp := range n.EOC() {
			outputMap[cp.Destination] = append(outputMap[cp.Destination], childOutput[cp.Source]...)
		}
		composeIC(state, n.IC(), childOutput, childInput)

		if sel, ok := n.(Selector); ok {
			state.selectorCandidates = append(state.selectorCandidates, selectorCandidate{selector: sel, covers: covered})
		}
		return inputMap, outputMap, covered, nil

	case AtomicModel:
		state.atomics[n.Name()] = n
		inputMap = map[Port][]Port{}
		for _, p := range n.InputPorts() {
			inputMap[p] = []Port{p}
		}
		outputMap = map[Port][]Port{}
		for _, p := range n.OutputPorts() {
			outputMap[p] = []Port{p}
		}
		return inputMap, outputMap, map[string]bool{n.Name(): true}, nil

	default:
		return nil, nil, nil, newKernelError(ErrInvalidModel, node.Name(), 0,
			"flatten: model implements neither AtomicModel nor CoupledModel")
	}
}

func composeIC(state *flattenState, ic []Coupling, childOutput, childInput map[Port][]Port) {
	for _, cp := range ic {
		for _, src := range childOutput[cp.Source] {
			for _, dest := range childInput[cp.Destination] {
				state.ic = append(state.ic, Coupling{Kind: IC, Source: src, Destination: dest})
			}
		}
	}
}

func mergePortMap(dst, src map[Port][]Port) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

type composedSelector struct {
	candidates []selectorCandidate
}

// Select delegates to the first (innermost) candidate whose covered
// leaves include every imminent model. If no single candidate covers
// the whole tie set, it returns imminents[0], in whatever order the
// caller supplied them.
func (c *composedSelector) Select(imminents []Model) Model {
	names := make(map[string]bool, len(imminents))
	for _, m := range imminents {
		names[m.Name()] = true
	}
	for _, cand := range c.candidates {
		if coversAll(cand.covers, names) {
			return cand.selector.Select(imminents)
		}
	}
	return imminents[0]
}

func coversAll(covers, names map[string]bool) bool {
	for name := range names {
		if !covers[name] {
			return false
		}
	}
	return true
}

type flattenedModel struct {
	name     string
	inputs   []Port
	outputs  []Port
	children []Model
	eic      []Coupling
	eoc      []Coupling
	ic       []Coupling
}

func (f *flattenedModel) Name() string         { return f.name }
func (f *flattenedModel) InputPorts() []Port   { return f.inputs }
func (f *flattenedModel) OutputPorts() []Port  { return f.outputs }
func (f *flattenedModel) Children() []Model    { return f.children }
func (f *flattenedModel) EIC() []Coupling      { return f.eic }
func (f *flattenedModel) EOC() []Coupling      { return f.eoc }
func (f *flattenedModel) IC() []Coupling       { return f.ic }

type selectableFlattenedModel struct {
	*flattenedModel
	selector Selector
}

func (f *selectableFlattenedModel) Select(imminents []Model) Model {
	return f.selector.Select(imminents)
}
