package crush

import "testing"

func TestHashDeterministic(t *testing.T) {
	a := Hash(1, 2, 3)
	b := Hash(1, 2, 3)
	if a != b {
		t.Fatalf("Hash(1,2,3) not stable across calls: %d != %d", a, b)
	}
}

func TestHashDistinguishesArgOrder(t *testing.T) {
	if Hash(1, 2) == Hash(2, 1) {
		t.Error("Hash(1,2) == Hash(2,1), expected argument order to matter")
	}
}

func TestLow16Range(t *testing.T) {
	for x := int64(0); x < 200; x++ {
		u := Low16(Hash(x))
		if u > 0xFFFF {
			t.Fatalf("Low16 out of range: %d", u)
		}
	}
}

func TestAbsID(t *testing.T) {
	cases := map[int64]int64{5: 5, -5: 5, 0: 0, -1: 1}
	for in, want := range cases {
		if got := AbsID(in); got != want {
			t.Errorf("AbsID(%d) = %d, want %d", in, got, want)
		}
	}
}

func FuzzHashDeterministic(f *testing.F) {
	f.Add(int64(1), int64(2), int64(3))
	f.Add(int64(-5), int64(0), int64(9999))
	f.Fuzz(func(t *testing.T, a, b, c int64) {
		h1 := Hash(a, b, c)
		h2 := Hash(a, b, c)
		if h1 != h2 {
			t.Fatalf("Hash(%d,%d,%d) not deterministic: %d != %d", a, b, c, h1, h2)
		}
	})
}
