package gib

import (
	"bytes"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

var discard = log.New(io.Discard, "", 0)

// A column of three cells along z, with the zone between cells 0 and 1
func column(t *testing.T) (m *mesh.PolyMesh, f01, f12 int) {
	_, m = unitBlock(t, 1, 1, 3)
	f01, f12 = internalFace(m, 0, 1), internalFace(m, 1, 2)
	require.True(t, f01 >= 0 && f12 >= 0)
	return
}

func TestFloodRegions(t *testing.T) {
	m, f01, f12 := column(t)
	s := parallel.Serial{}
	fc := classifyFaces(m)
	mark := make([]bool, m.NFaces())
	flipMap := make([]bool, m.NFaces())
	mark[f01] = true

	flipMap[f01] = true
	label, err := floodRegions(m, s, fc, mark, flipMap)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0}, label)

	flipMap[f01] = false
	label, err = floodRegions(m, s, fc, mark, flipMap)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, label)

	id, err := faceOwnership(m, s, fc, label)
	require.NoError(t, err)
	assert.True(t, id[f01])
	assert.False(t, id[f12])

	region := flippedRegions(label, []bool{false, true, false})
	assert.Equal(t, []int{0, 0, 1}, region)

	// Without a zone no cell is reached
	label, err = floodRegions(m, s, fc, make([]bool, m.NFaces()), flipMap)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, label)
}

func TestClassifyFlipCells(t *testing.T) {
	m, f01, f12 := column(t)
	s := parallel.Serial{}
	mark := make([]bool, m.NFaces())
	mark[f01] = true
	inter, err := pointsOf(m, s, mark)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, classifyFlipCells(m, mark, inter))

	mark[f12] = true
	inter, err = pointsOf(m, s, mark)
	require.NoError(t, err)
	flipCell := classifyFlipCells(m, mark, inter)
	assert.Equal(t, []bool{false, true, false}, flipCell)

	// Hexahedra are never flipped unless allowed
	assert.Equal(t, 1, resetFlipCellsWithFewFaces(m, flipCell, discard))
	assert.Equal(t, 0, countTrue(flipCell))
}

func TestResetFlipCellsWithFewFaces(t *testing.T) {
	// A prism standing on a tet
	points := []r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1},
		{X: 0, Y: 0, Z: -1},
	}
	m, err := mesh.FromElements(points,
		[][]int{{0, 1, 2, 3, 4, 5}, {0, 2, 1, 6}},
		[]mesh.ElementType{mesh.Prism, mesh.Tet}, nil)
	require.NoError(t, err)
	flipCell := []bool{true, true}
	assert.Equal(t, 1, resetFlipCellsWithFewFaces(m, flipCell, discard))
	assert.Equal(t, []bool{false, true}, flipCell)
}

func TestVotes(t *testing.T) {
	m, f01, f12 := column(t)
	s := parallel.Serial{}
	fc := classifyFaces(m)
	mark := make([]bool, m.NFaces())
	flipMap := make([]bool, m.NFaces())
	mark[f01], flipMap[f01] = true, true
	flipCell := []bool{false, true, false}

	votes, err := castVotes(m, s, fc, mark, flipCell)
	require.NoError(t, err)
	assert.Equal(t, -1, votes[f01])
	assert.Equal(t, 1, votes[f12])
	var sum int
	for _, v := range votes {
		sum += v
	}
	// Six faces of one flip cell, one of them in the zone
	assert.Equal(t, 4, sum)

	label, err := floodRegions(m, s, fc, mark, flipMap)
	require.NoError(t, err)
	region := flippedRegions(label, flipCell)
	assert.Equal(t, []int{1, 1, 0}, region)
	faceID, err := faceOwnership(m, s, fc, region)
	require.NoError(t, err)

	newMark, newFlip, rc := resolveVotes(m.Owner(), votes, mark, flipMap, faceID, region,
		ReleaseConservative, discard)
	assert.False(t, newMark[f01])
	assert.False(t, newFlip[f01])
	assert.True(t, newMark[f12])
	// The owner of the entering face is the flipped cell, now inside
	assert.True(t, newFlip[f12])
	assert.Equal(t, 1, rc.left)
	assert.Equal(t, 5, rc.entered)
	assert.Equal(t, 5, countTrue(newMark))
}

func TestResolveVotes(t *testing.T) {
	var (
		owner   = make([]int, 7)
		votes   = []int{1, -1, 2, 2, -2, -2, 0}
		mark    = []bool{false, true, false, false, true, true, true}
		flipMap = []bool{false, false, false, false, false, false, true}
		faceID  = []bool{false, false, true, false, true, false, false}
		region  = []int{1}
	)
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	newMark, newFlip, rc := resolveVotes(owner, votes, mark, flipMap, faceID, region,
		ReleaseConservative, logger)
	assert.Contains(t, buf.String(), "face 2 claimed by both cells, entered")
	assert.Contains(t, buf.String(), "face 3 claimed by both cells, left out of zone")
	assert.Contains(t, buf.String(), "face 5 released by both cells, kept")
	assert.Equal(t, []bool{true, false, true, false, true, true, true}, newMark)
	assert.Equal(t, []bool{true, false, true, false, false, false, true}, newFlip)
	assert.Equal(t, resolveCounts{entered: 2, left: 1, claims: 2, releases: 2}, rc)
	// Inputs are not modified
	assert.Equal(t, []bool{false, true, false, false, true, true, true}, mark)

	buf.Reset()
	newMark, newFlip, rc = resolveVotes(owner, votes, mark, flipMap, faceID, region,
		ReleaseRegions, logger)
	assert.Contains(t, buf.String(), "face 4 released by both cells, kept")
	assert.Contains(t, buf.String(), "face 5 released by both cells, removed")
	assert.Equal(t, []bool{true, false, true, false, true, false, true}, newMark)
	assert.Equal(t, []bool{true, false, true, false, true, false, true}, newFlip)
	assert.Equal(t, resolveCounts{entered: 2, left: 2, claims: 2, releases: 2}, rc)
}

func TestRemovePops(t *testing.T) {
	_, m := unitBlock(t, 3, 3, 3)
	s := parallel.Serial{}
	fc := classifyFaces(m)
	const centre = 13
	cellMark := func() []bool {
		mark := make([]bool, m.NFaces())
		for _, f := range m.Cells()[centre] {
			mark[f] = true
		}
		return mark
	}

	newMark, cand := cellMark(), cellMark()
	flipCell := make([]bool, m.NCells())
	popped, err := removePops(m, s, fc, newMark, make([]bool, m.NFaces()), cand, flipCell)
	require.NoError(t, err)
	assert.Equal(t, []int{centre}, popped)
	assert.Equal(t, 0, countTrue(newMark))

	// A cell already touching the committed zone is kept
	newMark, prev := cellMark(), make([]bool, m.NFaces())
	prev[m.Cells()[centre][0]] = true
	popped, err = removePops(m, s, fc, newMark, prev, cand, flipCell)
	require.NoError(t, err)
	assert.Empty(t, popped)
	assert.Equal(t, 6, countTrue(newMark))

	// A flip cell that released all its candidate faces is a pop as well
	newMark = make([]bool, m.NFaces())
	flipCell[centre] = true
	popped, err = removePops(m, s, fc, newMark, make([]bool, m.NFaces()), cand, flipCell)
	require.NoError(t, err)
	assert.Equal(t, []int{centre}, popped)
	assert.False(t, flipCell[centre])

	// Cells on the boundary are never pops
	corner := make([]bool, m.NFaces())
	for _, f := range m.Cells()[0] {
		corner[f] = true
	}
	popped, err = removePops(m, s, fc, corner, make([]bool, m.NFaces()), corner, flipCell)
	require.NoError(t, err)
	assert.Empty(t, popped)
}
