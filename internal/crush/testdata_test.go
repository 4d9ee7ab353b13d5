package crush

import (
	"strconv"
	"testing"
)

// buildScenarioHierarchy constructs the §8 "Scenarios (literal)" topology:
// root -> host{h1,h2,h3} -> osd{1..9}, three devices per host, all weight 1.0.
func buildScenarioHierarchy(t *testing.T) (*Hierarchy, map[string]*Bucket, map[int64]*Device) {
	t.Helper()

	hosts := make(map[string]*Bucket)
	devices := make(map[int64]*Device)

	var osdID int64 = 1
	var hostID int64 = -2
	for _, name := range []string{"h1", "h2", "h3"} {
		host := &Bucket{ID: hostID, Name: name, Type: TypeHost, Alg: AlgStraw2}
		hostID--
		for i := 0; i < 3; i++ {
			dev := &Device{ID: osdID, Name: deviceName(osdID), Class: "", Weight: UnitWeight}
			devices[osdID] = dev
			host.Children = append(host.Children, Child{Device: dev})
			osdID++
		}
		hosts[name] = host
	}

	root := &Bucket{
		ID:   -1,
		Name: "root",
		Type: TypeRoot,
		Alg:  AlgStraw2,
		Children: []Child{
			{Bucket: hosts["h1"]},
			{Bucket: hosts["h2"]},
			{Bucket: hosts["h3"]},
		},
	}

	h, err := NewHierarchy(root)
	if err != nil {
		t.Fatalf("NewHierarchy: %v", err)
	}
	return h, hosts, devices
}

func deviceName(id int64) string {
	return "osd." + strconv.FormatInt(id, 10)
}

func scenarioRule() Rule {
	return Rule{
		Name:    "replicated",
		ID:      0,
		MinSize: 1,
		MaxSize: 10,
		Steps: []Step{
			{Kind: StepTake, TakeBucket: "root"},
			{Kind: StepChoose, ChooseKindVal: ChooseLeaf, N: 3, TargetType: TypeHost},
			{Kind: StepEmit},
		},
	}
}
