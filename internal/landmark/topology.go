package landmark

import "errors"

// Face mesh landmark indices used by the hairline analysis.
// See: https://github.com/google/mediapipe/blob/master/mediapipe/modules/face_geometry/data/canonical_face_model_uv_visualization.png
const (
	NoseBase    = 1
	ForeheadTop = 10
	ForeheadMid = 151
	BrowLeft    = 105
	BrowRight   = 334
	BrowRightIn = 336
	Chin        = 152
	MeshSize    = 468
	MeshMinimum = 351
)

// Table maps the semantic face regions used by the metrics to landmark
// indices of a particular detector topology. Swapping the table is enough to
// run the metrics on a different landmark layout.
type Table struct {
	Forehead     []int `toml:"forehead" json:"forehead"`
	Eyebrows     []int `toml:"eyebrows" json:"eyebrows"`
	Chin         []int `toml:"chin" json:"chin"`
	FrontalLeft  []int `toml:"frontal_left" json:"frontal_left"`
	FrontalRight []int `toml:"frontal_right" json:"frontal_right"`
	FrontalRef   int   `toml:"frontal_ref" json:"frontal_ref"`
	Size         int   `toml:"size" json:"size"`
}

// FaceMesh returns the index table for the 468-point face mesh topology.
func FaceMesh() Table {
	return Table{
		Forehead:     []int{ForeheadTop, 67, 69, 104, 108, 109, ForeheadMid, 337, 338, 297},
		Eyebrows:     []int{BrowLeft, BrowRight, BrowRightIn},
		Chin:         []int{Chin, 148, 176, 149, 150, 136, 172, 58, 132, 93, 234},
		FrontalLeft:  []int{33, 133, 362},
		FrontalRight: []int{263, 361, 130},
		FrontalRef:   NoseBase,
		Size:         MeshSize,
	}
}

// Validate reports whether the table has the region sets the metrics need.
func (t Table) Validate() error {
	switch {
	case len(t.Forehead) == 0:
		return errors.New("landmark table: empty forehead region")
	case len(t.Eyebrows) == 0:
		return errors.New("landmark table: empty eyebrows region")
	case len(t.Chin) == 0:
		return errors.New("landmark table: empty chin region")
	}
	return nil
}
