package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evrptw/core/model"
)

func testInstance(stations, clients int) *model.Instance {
	inst := &model.Instance{
		Name:    "t",
		Depots:  []model.Node{{X: 0, Y: 0, ReadyTime: 0, DueTime: 100}},
		Vehicle: model.Vehicle{BatteryCapacity: 50, LoadCapacity: 10, ConsumptionRate: 1, RechargeRate: 1, Speed: 2},
	}
	for s := 0; s < stations; s++ {
		inst.Stations = append(inst.Stations, model.Node{X: float64(10 * (s + 1)), Y: 1, DueTime: 100})
	}
	for c := 0; c < clients; c++ {
		inst.Clients = append(inst.Clients, model.Node{X: float64(c + 1), Y: float64(2 * c), Demand: 1, DueTime: 100, ServiceTime: 1})
	}
	return inst
}

func TestBuildPartitionSizes(t *testing.T) {
	cases := []struct {
		stations, clients, copies int
	}{
		{0, 1, 2},
		{1, 1, 1},
		{2, 3, 2},
		{3, 5, 3},
		{2, 2, 0},
	}
	for _, c := range cases {
		g, err := Build(testInstance(c.stations, c.clients), Options{StationCopies: c.copies})
		require.NoError(t, err)

		want := 2 + c.copies*c.stations + c.clients
		assert.Equal(t, want, g.Table.Len())
		assert.Len(t, g.Part.Stations, c.copies*c.stations)
		assert.Len(t, g.Part.Clients, c.clients)

		seen := make(map[int]int)
		for _, i := range g.Part.All() {
			seen[i]++
		}
		assert.Len(t, seen, want, "union must cover every node")
		for i, n := range seen {
			assert.Equal(t, 1, n, "index %d in more than one set", i)
		}
		assert.Equal(t, 0, g.Part.DepotStart)
		assert.Equal(t, want-1, g.Part.DepotEnd)
	}
}

func TestBuildStationCopiesArePasses(t *testing.T) {
	g, err := Build(testInstance(2, 1), Options{StationCopies: 2})
	require.NoError(t, err)
	var got []int
	for _, i := range g.Part.Stations {
		got = append(got, g.Table.Station(i))
		assert.Equal(t, g.Table.Node(i), testInstance(2, 1).Stations[g.Table.Station(i)])
	}
	assert.Equal(t, []int{0, 1, 0, 1}, got)
	assert.Equal(t, 1, g.Table.Copy(g.Part.Stations[3]))
}

func TestDistanceSymmetricNoSelfArcs(t *testing.T) {
	g, err := Build(testInstance(2, 4), Options{StationCopies: 2})
	require.NoError(t, err)
	n := g.Table.Len()
	assert.Len(t, g.Arcs(), n*(n-1))
	for _, a := range g.Arcs() {
		require.NotEqual(t, a.From, a.To)
		dij, ok := g.Distance(a.From, a.To)
		require.True(t, ok)
		dji, ok := g.Distance(a.To, a.From)
		require.True(t, ok)
		assert.Equal(t, dij, dji)
		tij, _ := g.TravelTime(a.From, a.To)
		assert.InDelta(t, dij/2, tij, 1e-12)
	}
	for i := 0; i < n; i++ {
		_, ok := g.Distance(i, i)
		assert.False(t, ok)
	}
}

func TestDepotCopiesShareAttributes(t *testing.T) {
	g, err := Build(testInstance(1, 2), Options{StationCopies: 2})
	require.NoError(t, err)
	start, end := g.Part.DepotStart, g.Part.DepotEnd
	assert.NotEqual(t, start, end)
	assert.Equal(t, g.Table.Node(start), g.Table.Node(end))
	d, ok := g.Distance(start, end)
	assert.True(t, ok)
	assert.Zero(t, d)
	assert.True(t, g.Table.IsDepotStart(start))
	assert.True(t, g.Table.IsDepotEnd(end))
}

func TestRoleRoundTrip(t *testing.T) {
	inst := testInstance(2, 3)
	g, err := Build(inst, Options{StationCopies: 2})
	require.NoError(t, err)

	var want []model.Role
	want = append(want, model.RoleDepot)
	for c := 0; c < 2; c++ {
		for range inst.Stations {
			want = append(want, model.RoleStation)
		}
	}
	for range inst.Clients {
		want = append(want, model.RoleClient)
	}
	want = append(want, model.RoleDepot)

	decoded := make([]model.Role, g.Table.Len())
	decoded[g.Part.DepotStart] = model.RoleDepot
	decoded[g.Part.DepotEnd] = model.RoleDepot
	for _, i := range g.Part.Stations {
		decoded[i] = model.RoleStation
	}
	for _, i := range g.Part.Clients {
		decoded[i] = model.RoleClient
	}
	assert.Equal(t, want, decoded)
	assert.Equal(t, want, g.Table.Roles())
	for i, r := range want {
		assert.Equal(t, r == model.RoleStation, g.Table.IsStation(i))
		assert.Equal(t, r == model.RoleClient, g.Table.IsClient(i))
	}
}

func TestNoStationsIsEmptyF(t *testing.T) {
	g, err := Build(testInstance(0, 2), Options{StationCopies: 2})
	require.NoError(t, err)
	assert.Empty(t, g.Part.Stations)
	assert.Equal(t, []int{0}, g.Part.StartAndStations())
	assert.Equal(t, g.Part.Clients, g.Part.Visits())
}

func TestBuildMalformed(t *testing.T) {
	noClients := testInstance(1, 0)
	if _, err := Build(noClients, Options{StationCopies: 2}); !errors.Is(err, ErrNoClients) {
		t.Fatalf("expected ErrNoClients got %v", err)
	}
	twoDepots := testInstance(1, 1)
	twoDepots.Depots = append(twoDepots.Depots, twoDepots.Depots[0])
	if _, err := Build(twoDepots, Options{}); !errors.Is(err, ErrNoDepot) {
		t.Fatalf("expected ErrNoDepot got %v", err)
	}
	if _, err := Build(testInstance(1, 1), Options{StationCopies: -1}); !errors.Is(err, ErrStationCopies) {
		t.Fatalf("expected ErrStationCopies got %v", err)
	}
	still := testInstance(0, 1)
	still.Vehicle.Speed = 0
	if _, err := Build(still, Options{}); !errors.Is(err, ErrSpeed) {
		t.Fatalf("expected ErrSpeed got %v", err)
	}
	if _, err := Build(still, Options{Speed: model.SpeedPolicy{Override: 30}}); err != nil {
		t.Fatalf("override should fix speed: %v", err)
	}
}
