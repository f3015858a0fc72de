// Package devs implements the core simulation kernel of a hierarchical
// Discrete EVent System Specification (DEVS) simulator.
//
// The kernel supports two formalisms, Classic DEVS (CDEVS) and Parallel
// DEVS (PDEVS), distinguished by how simultaneous events are
// disambiguated (a user-supplied select tie-break versus concurrent
// activation with bag-typed input). It is organized around three
// collaborating subsystems: a processor tree (Simulator for atomic
// models, Coordinator for coupled models, RootCoordinator at the apex)
// that implements the DEVS simulation protocol; a calendar-queue event
// scheduler (package calendarqueue) giving amortized O(1) access to the
// next imminent child; and the formalism variant, selected per
// RootCoordinator and applied uniformly across the tree.
//
// The kernel is single-threaded and cooperative: a single root loop
// drives the processor tree. It does not build models (that is the
// caller's job, see devsconfig for an optional YAML-backed example),
// does not persist state, and does not pace execution to wall-clock
// time.
package devs
