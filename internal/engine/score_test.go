package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasePoints(t *testing.T) {
	st := DefaultSettings()
	cases := []struct {
		han, fu, want int
	}{
		{1, 30, 240},
		{2, 40, 640},
		{3, 70, 2000}, // capped at mangan
		{4, 30, 1920},
		{5, 70, 2000},
		{6, 30, 3000},  // haneman
		{8, 30, 4000},  // baiman
		{11, 30, 6000}, // sanbaiman
		{13, 30, 8000}, // kazoe yakuman
	}
	for _, c := range cases {
		got := basePoints(&WinScore{Han: c.han, Fu: c.fu}, st)
		assert.Equal(t, c.want, got, "%d han %d fu", c.han, c.fu)
	}
}

func TestBasePointsKiriage(t *testing.T) {
	st := DefaultSettings()
	assert.Equal(t, 1920, basePoints(&WinScore{Han: 4, Fu: 30}, st))
	st.Kiriage = true
	assert.Equal(t, 2000, basePoints(&WinScore{Han: 4, Fu: 30}, st))
	assert.Equal(t, 2000, basePoints(&WinScore{Han: 3, Fu: 60}, st))
}

func TestBasePointsKazoeLimit(t *testing.T) {
	st := DefaultSettings()
	st.KazoeLimit = KazoeSanbaiman
	assert.Equal(t, 6000, basePoints(&WinScore{Han: 14, Fu: 30}, st))
}

func TestBasePointsYakuman(t *testing.T) {
	st := DefaultSettings()
	assert.Equal(t, 8000, basePoints(&WinScore{Yakuman: 1}, st))
	assert.Equal(t, 16000, basePoints(&WinScore{Yakuman: 2}, st))
}

func TestRonCost(t *testing.T) {
	assert.Equal(t, 12000, ronCost(2000, true))
	assert.Equal(t, 8000, ronCost(2000, false))
	assert.Equal(t, 1000, ronCost(240, false)) // 960 rounds up
	assert.Equal(t, 1500, ronCost(240, true))  // 1440 rounds up
}

func TestTsumoCosts(t *testing.T) {
	main, add := tsumoCosts(500, false)
	assert.Equal(t, 1000, main)
	assert.Equal(t, 500, add)

	main, add = tsumoCosts(500, true)
	assert.Equal(t, 1000, main)
	assert.Equal(t, 1000, add)

	main, add = tsumoCosts(2000, false)
	assert.Equal(t, 4000, main)
	assert.Equal(t, 2000, add)
}

func TestGoshaRound(t *testing.T) {
	cases := map[int]int{
		0:     0,
		400:   0,
		500:   0, // exact .5 toward zero
		501:   1000,
		999:   1000,
		1500:  1000,
		1501:  2000,
		-400:  0,
		-500:  0, // exact -.5 toward zero
		-501:  -1000,
		-1500: -1000,
		-1501: -2000,
	}
	for in, want := range cases {
		assert.Equal(t, want, goshaRound(in), "goshaRound(%d)", in)
	}
}

func TestFinalStandings(t *testing.T) {
	st := DefaultSettings()
	players := [4]Player{
		{Seat: 0, Name: "a", Score: 32300},
		{Seat: 1, Name: "b", Score: 28700},
		{Seat: 2, Name: "c", Score: 21500},
		{Seat: 3, Name: "d", Score: 17500},
	}
	out := FinalStandings(&players, st)

	sum := 0
	for _, fs := range out {
		sum += fs.Final
	}
	assert.Zero(t, sum, "final scores must be zero-sum")

	assert.Equal(t, 0, out[0].Seat)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, 3, out[3].Seat)
	assert.Equal(t, 4, out[3].Rank)

	// Second place: 28700 - 30000 = -1300 -> -1000, +10 uma -> +9000.
	assert.Equal(t, 9000, out[1].Final)
	// Third: 21500 - 30000 = -8500 -> -8000, -10 uma -> -18000.
	assert.Equal(t, -18000, out[2].Final)
	// Fourth: 17500 - 30000 = -12500 -> -12000, -20 uma -> -32000.
	assert.Equal(t, -32000, out[3].Final)
	// First takes the rest: oka 20 + uma 20 + rounded 2000 + correction.
	assert.Equal(t, 41000, out[0].Final)
}

func TestFinalStandingsSeatTieBreak(t *testing.T) {
	st := DefaultSettings()
	players := [4]Player{
		{Seat: 0, Name: "a", Score: 25000},
		{Seat: 1, Name: "b", Score: 25000},
		{Seat: 2, Name: "c", Score: 25000},
		{Seat: 3, Name: "d", Score: 25000},
	}
	out := FinalStandings(&players, st)
	for i, fs := range out {
		assert.Equal(t, i, fs.Seat)
		assert.Equal(t, i+1, fs.Rank)
	}
}
