package crush

import "testing"

func TestWeightAggregation(t *testing.T) {
	h, _, devices := buildScenarioHierarchy(t)

	for id, w := range map[int64]Weight{1: 0.4, 5: 0.0, 9: 2.0} {
		h.UpdateDeviceWeight(devices[id], w)
	}

	var walk func(b *Bucket) Weight
	walk = func(b *Bucket) Weight {
		var sum Weight
		for _, c := range b.Children {
			if c.Bucket != nil {
				sum += walk(c.Bucket)
			} else {
				sum += c.Device.Weight
			}
		}
		if b.Weight != sum {
			t.Errorf("bucket %s: Weight = %v, want %v (sum of children)", b.Name, b.Weight, sum)
		}
		return b.Weight
	}
	walk(h.Root)
}

func TestNewHierarchyRejectsNilRoot(t *testing.T) {
	if _, err := NewHierarchy(nil); err == nil {
		t.Fatal("expected error for nil root")
	}
}

func TestLookups(t *testing.T) {
	h, hosts, devices := buildScenarioHierarchy(t)

	if b, ok := h.LookupByName("h2"); !ok || b != hosts["h2"] {
		t.Errorf("LookupByName(h2) = %v, %v", b, ok)
	}
	if _, ok := h.LookupByName("does-not-exist"); ok {
		t.Error("LookupByName should miss on unknown name")
	}
	if d, ok := h.DeviceByID(5); !ok || d != devices[5] {
		t.Errorf("DeviceByID(5) = %v, %v", d, ok)
	}
	if d, ok := h.DeviceByName("osd.7"); !ok || d != devices[7] {
		t.Errorf("DeviceByName(osd.7) = %v, %v", d, ok)
	}
	if got := len(h.Devices()); got != 9 {
		t.Errorf("len(Devices()) = %d, want 9", got)
	}
}

func TestParseBucketType(t *testing.T) {
	tests := []struct {
		name string
		want BucketType
		ok   bool
	}{
		{"osd", TypeOSD, true},
		{"host", TypeHost, true},
		{"root", TypeRoot, true},
		{"nonsense", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseBucketType(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseBucketType(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
