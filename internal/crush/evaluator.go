package crush

import "fmt"

// EmitError is the structured failure §4.4 requires when an Emit step
// receives a bucket instead of a fully-resolved device list — a malformed
// rule that a parser should have rejected (§7: treated as an internal
// assertion by the iteration driver, not a recoverable runtime condition).
type EmitError struct {
	Bucket *Bucket
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("crush: emit received bucket %q (id %d) where a device was expected", e.Bucket.Name, e.Bucket.ID)
}

// Evaluate executes rule against hierarchy for placement-group selector x,
// returning up to numReplicas ordered device ids: position 0 is the
// primary, positions 1.. are replicas (§4.4 Result contract).
func Evaluate(x int64, h *Hierarchy, rule Rule, numReplicas int, tunables Tunables) ([]*Device, error) {
	working := []Child{{Bucket: h.Root}}
	var class string
	var out []*Device

	for _, step := range rule.Steps {
		switch step.Kind {
		case StepTake:
			class = step.TakeClass
			var next []Child
			for _, item := range working {
				root := item.Bucket
				if root == nil {
					continue
				}
				if found := bfsBucket(root, step.TakeBucket); found != nil {
					next = append(next, Child{Bucket: found})
				}
			}
			working = next

		case StepChoose:
			var next []Child
			recurseToLeaf := step.ChooseKindVal == ChooseLeaf
			for _, item := range working {
				if item.Device != nil {
					if recurseToLeaf {
						next = append(next, item)
					}
					continue
				}
				var outBuf []Child
				var leafBuf []*Device
				choseN := normalizeNumReplicas(step.N, rule.MaxSize, item.Bucket)
				choseFirstn(
					x, item.Bucket, step.TargetType, class,
					choseN, tunables.ChooseTotalTries, tunables.ChooseTotalTries,
					recurseToLeaf, &outBuf, &leafBuf,
				)
				if recurseToLeaf {
					for _, d := range leafBuf {
						next = append(next, Child{Device: d})
					}
				} else {
					next = append(next, outBuf...)
				}
			}
			working = next

		case StepEmit:
			for _, item := range working {
				if item.Bucket != nil {
					return nil, &EmitError{Bucket: item.Bucket}
				}
			}
			for _, item := range working {
				out = append(out, item.Device)
			}
			working = nil
		}
	}

	if len(out) > numReplicas && numReplicas > 0 {
		out = out[:numReplicas]
	}
	return out, nil
}

func normalizeNumReplicas(n int, maxSize int, cur *Bucket) int {
	switch {
	case n == 0:
		return len(cur.Children)
	case n < 0:
		return maxSize + n
	default:
		return n
	}
}

// bfsBucket finds the named descendant bucket of root (root included),
// per §4.4's Take semantics.
func bfsBucket(root *Bucket, name string) *Bucket {
	queue := []*Bucket{root}
	for len(queue) > 0 {
		b := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if b.Name == name {
			return b
		}
		for _, c := range b.Children {
			if c.Bucket != nil {
				queue = append(queue, c.Bucket)
			}
		}
	}
	return nil
}

func isCollision(out []Child, id int64) bool {
	for _, o := range out {
		if o.id() == id {
			return true
		}
	}
	return false
}

// isOut implements §4.4's is_out predicate: a device is out-of-cluster at
// weight 0, never out at full weight, and probabilistically out in
// between, scaled by weight (reweighted devices).
func isOut(w Weight, deviceID int64, x int64) bool {
	if w >= UnitWeight {
		return false
	}
	if w <= OutOfClusterWeight {
		return true
	}
	u := Low16(Hash(x, AbsID(deviceID)))
	return uint32(u) < Round65535(float64(w))
}

// choseFirstn is choose_firstn from §4.4. out accumulates the per-replica
// result (bucket-of-target-type, or device when target is osd); out2
// accumulates the leaf devices resolved during a chooseleaf recursion.
func choseFirstn(
	x int64,
	cur *Bucket,
	target BucketType,
	class string,
	numReplicas int,
	tries int,
	recursiveTries int,
	recurseToLeaf bool,
	out *[]Child,
	out2 *[]*Device,
) int {
	outpos := len(*out)
	for rep := 0; rep < numReplicas; rep++ {
		ftotal := 0
		skip := false

	descent:
		for {
			item := cur
			repeatDescent := false

		withinBucket:
			for {
				r := int64(rep) + int64(ftotal)
				bd := item.Choose(x, r)
				repeatBucket := false

				switch {
				case bd.Bucket != nil:
					b := bd.Bucket
					if b.Type != target {
						item = b
						repeatBucket = true
						break
					}
					if isCollision(*out, b.ID) {
						if ftotal >= tries {
							skip = true
						} else {
							ftotal++
							repeatDescent = true
						}
						break
					}
					if recurseToLeaf {
						before := len(*out2)
						chooseLeafDevice(x, b, class, recursiveTries, out2)
						if len(*out2) <= before {
							skip = true
							break
						}
					}
					*out = append(*out, Child{Bucket: b})
					outpos++

				case bd.Device != nil:
					d := bd.Device
					if target != TypeOSD || isCollision(*out, d.ID) || isOut(d.Weight, d.ID, x) || (class != "" && d.Class != class) {
						if ftotal >= tries {
							skip = true
						} else {
							ftotal++
							repeatDescent = true
						}
						break
					}
					*out = append(*out, Child{Device: d})
					outpos++
					if recurseToLeaf {
						*out2 = append(*out2, d)
					}
				}

				if !repeatBucket || skip {
					break withinBucket
				}
			}
			if !repeatDescent || skip {
				break descent
			}
		}

		if skip {
			continue
		}
	}
	return outpos
}

// chooseLeafDevice resolves bucket cur down to a single osd, used by
// choseFirstn's chooseleaf recursion (§4.4). Collisions are checked against
// the devices already placed in out2 rather than against a fresh list, so a
// chooseleaf rule never resolves the same device twice across two different
// target buckets. A failed resolution (retries exhausted) leaves out2
// untouched; the caller detects this by comparing len(*out2) before/after.
func chooseLeafDevice(x int64, cur *Bucket, class string, tries int, out2 *[]*Device) {
	ftotal := 0
descent:
	for {
		item := cur
		repeatDescent := false

	withinBucket:
		for {
			r := int64(ftotal)
			bd := item.Choose(x, r)
			repeatBucket := false

			switch {
			case bd.Bucket != nil:
				item = bd.Bucket
				repeatBucket = true

			case bd.Device != nil:
				d := bd.Device
				if deviceCollides(*out2, d.ID) || isOut(d.Weight, d.ID, x) || (class != "" && d.Class != class) {
					if ftotal >= tries {
						return
					}
					ftotal++
					repeatDescent = true
					break
				}
				*out2 = append(*out2, d)
				return
			}

			if !repeatBucket {
				break withinBucket
			}
		}
		if !repeatDescent {
			break descent
		}
	}
}

func deviceCollides(out2 []*Device, id int64) bool {
	for _, d := range out2 {
		if d.ID == id {
			return true
		}
	}
	return false
}
