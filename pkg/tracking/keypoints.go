package tracking

import "sort"

// KeyPoints is an ordered, duplicate-free set of landmark indices. The
// order fixes the row order of reference and observation point lists.
type KeyPoints struct {
	indices []int
}

// NewKeyPoints builds a key point set. Negative indices are dropped,
// duplicates collapse and the result is sorted ascending.
func NewKeyPoints(indices ...int) KeyPoints {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return KeyPoints{indices: out}
}

// Len returns the number of key points.
func (k KeyPoints) Len() int {
	return len(k.indices)
}

// At returns the i-th landmark index.
func (k KeyPoints) At(i int) int {
	return k.indices[i]
}

// Max returns the largest index, or -1 for an empty set.
func (k KeyPoints) Max() int {
	if len(k.indices) == 0 {
		return -1
	}
	return k.indices[len(k.indices)-1]
}

// Contains reports whether idx is a key point.
func (k KeyPoints) Contains(idx int) bool {
	i := sort.SearchInts(k.indices, idx)
	return i < len(k.indices) && k.indices[i] == idx
}

// Indices returns a copy of the indices.
func (k KeyPoints) Indices() []int {
	out := make([]int, len(k.indices))
	copy(out, k.indices)
	return out
}

// FaceMeshKeyPoints are the FaceMesh landmarks used for pose: forehead,
// brows, eyes, nose bridge and tip, mouth corners and the face oval.
var FaceMeshKeyPoints = NewKeyPoints(
	10, 151, 337,
	107, 336, 46, 276,
	168, 33, 133, 263, 362,
	6, 195, 61, 291,
	338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288, 397,
	365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136, 172,
	58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
)

// YuNetKeyPoints are all five YuNet landmarks: eyes, nose tip and mouth
// corners.
var YuNetKeyPoints = NewKeyPoints(0, 1, 2, 3, 4)
