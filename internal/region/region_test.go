package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/hairline/internal/landmark"
	"github.com/dudu/hairline/internal/landmark/landmarktest"
)

func TestForehead_UsesTableOrder(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())

	poly := b.Forehead(landmarktest.Mesh())

	require.Len(t, poly, 10)
	assert.Equal(t, landmark.Point{X: 250, Y: 150}, poly[0])
	assert.Equal(t, landmark.Point{X: 300, Y: 165}, poly[9])
}

func TestForehead_SkipsOutOfRangeIndices(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())

	// indices 10, 67, 69 and 104 survive a 105-point topology
	poly := b.Forehead(landmarktest.Truncated(105))

	assert.Len(t, poly, 4)
}

func TestForehead_NoneWhenAllIndicesMissing(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())
	assert.Nil(t, b.Forehead(landmarktest.Truncated(5)))
}

func TestHairline_ExtendsUpwardByHalfHeight(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())

	rect := b.Hairline([]landmark.Point{{X: 100, Y: 200}, {X: 200, Y: 240}})

	assert.Equal(t, landmark.Polygon{
		{X: 100, Y: 180},
		{X: 200, Y: 180},
		{X: 200, Y: 240},
		{X: 100, Y: 240},
	}, rect)
}

func TestHairline_ClampsAtImageTop(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())

	rect := b.Hairline([]landmark.Point{{X: 10, Y: 10}, {X: 50, Y: 90}})

	assert.Equal(t, 0.0, rect[0].Y)
	assert.Equal(t, 0.0, rect[1].Y)
	assert.Equal(t, 90.0, rect[2].Y)
}

func TestHairline_DegenerateSinglePoint(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())

	rect := b.Hairline([]landmark.Point{{X: 42, Y: 17}})

	require.Len(t, rect, 4)
	for _, p := range rect {
		assert.Equal(t, landmark.Point{X: 42, Y: 17}, p)
	}
}

func TestHairline_EmptyBase(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())
	assert.Nil(t, b.Hairline(nil))
}

func TestBuild(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())

	forehead, hairline := b.Build(landmarktest.Mesh())

	require.Len(t, forehead, 10)
	require.Len(t, hairline, 4)
	// forehead spans y 150..175, so the search area starts 12.5 px higher
	assert.Equal(t, landmarktest.ForeheadTopY-12.5, hairline[0].Y)
	assert.Equal(t, landmarktest.ForeheadLowY, hairline[2].Y)
	assert.Equal(t, 190.0, hairline[0].X)
	assert.Equal(t, 300.0, hairline[1].X)
}

func TestBuild_NoForehead(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh())

	forehead, hairline := b.Build(landmarktest.Truncated(3))

	assert.Nil(t, forehead)
	assert.Nil(t, hairline)
}

func TestWithExtension(t *testing.T) {
	b := NewBuilder(landmark.FaceMesh()).WithExtension(1.0)

	rect := b.Hairline([]landmark.Point{{X: 0, Y: 100}, {X: 10, Y: 120}})

	assert.Equal(t, 80.0, rect[0].Y)
}
