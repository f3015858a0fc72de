package devs_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/romain1189/devs"
	"github.com/romain1189/devs/examples"
)

func TestScenario1_PDEVSFlat(t *testing.T) {
	g1 := examples.NewGenerator("G1", 1)
	g2 := examples.NewGenerator("G2", 1)
	r := examples.NewReceiver("R")
	net := examples.NewFlatNetwork("net", g1, g2, r)

	rc, err := devs.NewRootCoordinator(net, devs.WithFormalism(devs.PDEVS))
	require.NoError(t, err)
	require.NoError(t, rc.Run())

	require.Equal(t, 1, g1.OutputCalls)
	require.Equal(t, 1, g2.OutputCalls)
	require.Equal(t, 1, g1.IntCalls)
	require.Equal(t, 1, g2.IntCalls)
	require.Equal(t, 1, r.ExtCalls, "both generators' output should arrive as one merged bag")
	require.Equal(t, 0, r.IntCalls)
	require.Len(t, r.Received, 2)
}

func TestScenario2_PDEVSHierarchical(t *testing.T) {
	g1 := examples.NewGenerator("G1", 1)
	g2 := examples.NewGenerator("G2", 1)
	gen := examples.NewGenGroup("gen", g1, g2)
	r := examples.NewReceiver("R")
	recv := examples.NewRecvGroup("recv", r)
	net := examples.NewHierNetwork("top", gen, gen.OutPort(), recv)

	rc, err := devs.NewRootCoordinator(net, devs.WithFormalism(devs.PDEVS))
	require.NoError(t, err)
	require.NoError(t, rc.Run())

	require.Equal(t, 1, g1.OutputCalls)
	require.Equal(t, 1, g2.OutputCalls)
	require.Equal(t, 1, g1.IntCalls)
	require.Equal(t, 1, g2.IntCalls)
	require.Equal(t, 1, r.ExtCalls, "an added level of hierarchy must not change call counts")
	require.Equal(t, 0, r.IntCalls)
}

func TestScenario3_CDEVSFlatWithSelect(t *testing.T) {
	sel := &examples.FirstTieSelector{}
	g1 := examples.NewGenerator("G1", 1)
	g2 := examples.NewGenerator("G2", 1)
	r := examples.NewReceiver("R")
	net := examples.NewSelectableFlatNetwork("net", g1, g2, r, sel)

	rc, err := devs.NewRootCoordinator(net, devs.WithFormalism(devs.CDEVS))
	require.NoError(t, err)
	require.NoError(t, rc.Run())

	require.Equal(t, 1, g1.IntCalls)
	require.Equal(t, 1, g2.IntCalls)
	require.Equal(t, 2, r.ExtCalls, "CDEVS delivers each selected imminent's output as its own external transition")
	require.Equal(t, 1, sel.Calls)
	require.Equal(t, uint64(1), rc.Stats()["net"].SelectCalls)
}

func TestScenario4_CDEVSHierarchicalMaintained(t *testing.T) {
	sel := &examples.FirstTieSelector{}
	g1 := examples.NewGenerator("G1", 1)
	g2 := examples.NewGenerator("G2", 1)
	gen := examples.NewSelectableGenGroup("gen", g1, g2, sel)
	r := examples.NewReceiver("R")
	recv := examples.NewRecvGroup("recv", r)
	net := examples.NewHierNetwork("top", gen, gen.OutPort(), recv)

	rc, err := devs.NewRootCoordinator(net, devs.WithFormalism(devs.CDEVS))
	require.NoError(t, err)
	require.NoError(t, rc.Run())

	require.Equal(t, 2, r.ExtCalls)
	require.Equal(t, uint64(0), rc.Stats()["top"].SelectCalls, "only the inner group ever sees a tie")
	require.Equal(t, uint64(1), rc.Stats()["gen"].SelectCalls)
}

func TestScenario5_CDEVSHierarchicalFlattened(t *testing.T) {
	sel := &examples.FirstTieSelector{}
	g1 := examples.NewGenerator("G1", 1)
	g2 := examples.NewGenerator("G2", 1)
	gen := examples.NewSelectableGenGroup("gen", g1, g2, sel)
	r := examples.NewReceiver("R")
	recv := examples.NewRecvGroup("recv", r)
	net := examples.NewHierNetwork("top", gen, gen.OutPort(), recv)

	flat, err := devs.Flatten(net)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"G1", "G2", "R"}, modelNames(flat.Children()))

	rc, err := devs.NewRootCoordinator(flat, devs.WithFormalism(devs.CDEVS))
	require.NoError(t, err)
	require.NoError(t, rc.Run())

	require.Equal(t, 2, r.ExtCalls)
	require.Equal(t, uint64(1), rc.Stats()["top"].SelectCalls, "flattening moves the tie to the single remaining coordinator")
	require.Equal(t, 1, sel.Calls, "the original group's selector is still the one consulted")
}

func TestScenario6_QuiescenceHaltsImmediately(t *testing.T) {
	q := examples.NewGenerator("Q", 1)

	rc, err := devs.NewRootCoordinator(q, devs.WithEndTime(1000))
	require.NoError(t, err)
	require.NoError(t, rc.Run())

	require.Equal(t, 1, q.IntCalls)
	require.True(t, math.IsInf(rc.Top().TimeNext(), 1))
}

func modelNames(models []devs.Model) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name()
	}
	return names
}
