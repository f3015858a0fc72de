package devs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/romain1189/devs"
	"github.com/romain1189/devs/examples"
)

func TestRootCoordinator_ListenersReceiveLifecycleCallbacks(t *testing.T) {
	g1 := examples.NewGenerator("G1", 1)
	g2 := examples.NewGenerator("G2", 2)
	r := examples.NewReceiver("R")
	net := examples.NewFlatNetwork("net", g1, g2, r)

	rc, err := devs.NewRootCoordinator(net, devs.WithFormalism(devs.PDEVS))
	require.NoError(t, err)

	var initTimes, stepTimes []float64
	torndown := false
	rc.AddListener(devs.Listener{
		OnInit:     func(t float64) { initTimes = append(initTimes, t) },
		OnStep:     func(t float64) { stepTimes = append(stepTimes, t) },
		OnTeardown: func() { torndown = true },
	})

	require.NoError(t, rc.Run())

	require.Equal(t, []float64{1}, initTimes, "OnInit fires with the first imminent time computed by init, G1 at t=1")
	require.Equal(t, []float64{1, 2}, stepTimes, "one OnStep per imminent instant, G1 at t=1 then G2 at t=2")
	require.True(t, torndown)
}

func TestRootCoordinator_ListenerWithNilFieldsIsNotCalled(t *testing.T) {
	g := examples.NewGenerator("G", 1)
	r := examples.NewReceiver("R")
	net := examples.NewFlatNetwork("net", g, examples.NewGenerator("G2", 1), r)

	rc, err := devs.NewRootCoordinator(net)
	require.NoError(t, err)

	calls := 0
	rc.AddListener(devs.Listener{OnStep: func(float64) { calls++ }})
	require.NoError(t, rc.Run())
	require.Equal(t, 1, calls, "both generators fire simultaneously at t=1, so OnStep fires once")
}
