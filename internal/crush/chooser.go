package crush

import "math"

// chooseUniform implements the "uniform" bucket algorithm (§4.3): pick
// children[H(x, |id|, r) mod len(children)].
func chooseUniform(b *Bucket, x, r int64) Child {
	h := Hash(x, AbsID(b.ID), r)
	idx := int(h % uint64(len(b.Children)))
	return b.Children[idx]
}

// chooseStraw2 implements the "straw2" bucket algorithm (§4.3): each child
// draws a value from its weight and the hash of (x, |child_id|, r); the
// child with the largest draw wins, ties broken by child index.
//
// The reference description computes the draw in a fixed-point
// representation to reproduce Ceph's C implementation bit-for-bit; this
// module instead evaluates the same formula in float64, which is
// sufficient to satisfy this spec's determinism requirement (identical
// output for identical inputs, stable across runs/platforms within the Go
// ecosystem) without porting Ceph's crush_ln lookup tables.
func chooseStraw2(b *Bucket, x, r int64) Child {
	bestIdx := -1
	bestDraw := math.Inf(-1)
	for i, c := range b.Children {
		w := c.weight()
		var draw float64
		if w <= OutOfClusterWeight {
			draw = math.Inf(-1)
		} else {
			u := Low16(Hash(x, AbsID(c.id()), r))
			p := (float64(u) + 1) / 65536.0
			draw = math.Log(p) / float64(w)
		}
		if draw > bestDraw {
			bestDraw = draw
			bestIdx = i
		}
	}
	return b.Children[bestIdx]
}
