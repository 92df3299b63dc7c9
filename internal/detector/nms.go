package detector

import "sort"

// nms drops every face that overlaps a higher-scoring one by more than
// iouThreshold. The survivors come back best first.
func nms(faces []Face, iouThreshold float32) []Face {
	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Score > faces[j].Score
	})

	kept := make([]Face, 0, len(faces))
candidates:
	for _, face := range faces {
		for _, winner := range kept {
			if iou(winner.BoundingBox, face.BoundingBox) > iouThreshold {
				continue candidates
			}
		}
		kept = append(kept, face)
	}
	return kept
}

func iou(a, b BoundingBox) float32 {
	overlap := BoundingBox{
		X1: max(a.X1, b.X1), Y1: max(a.Y1, b.Y1),
		X2: min(a.X2, b.X2), Y2: min(a.Y2, b.Y2),
	}
	if overlap.X1 >= overlap.X2 || overlap.Y1 >= overlap.Y2 {
		return 0
	}

	inter := overlap.Width() * overlap.Height()
	union := a.Width()*a.Height() + b.Width()*b.Height() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
