package sim

import (
	"strconv"
	"testing"

	"crushsim/internal/crush"
)

// buildSimHierarchy constructs root -> host{h1,h2,h3} -> osd{1..9}, mirroring
// the crush package's §8 scenario fixture, for sim-level tests that need a
// real hierarchy+rule pair to drive a Simulation end to end.
func buildSimHierarchy(t *testing.T) *crush.Hierarchy {
	t.Helper()

	var osdID int64 = 1
	var hostID int64 = -2
	var hostChildren []crush.Child
	for _, name := range []string{"h1", "h2", "h3"} {
		host := &crush.Bucket{ID: hostID, Name: name, Type: crush.TypeHost, Alg: crush.AlgStraw2}
		hostID--
		for i := 0; i < 3; i++ {
			dev := &crush.Device{ID: osdID, Name: "osd." + strconv.FormatInt(osdID, 10), Weight: crush.UnitWeight}
			host.Children = append(host.Children, crush.Child{Device: dev})
			osdID++
		}
		hostChildren = append(hostChildren, crush.Child{Bucket: host})
	}

	root := &crush.Bucket{ID: -1, Name: "root", Type: crush.TypeRoot, Alg: crush.AlgStraw2, Children: hostChildren}
	h, err := crush.NewHierarchy(root)
	if err != nil {
		t.Fatalf("NewHierarchy: %v", err)
	}
	return h
}

func simRule() crush.Rule {
	return crush.Rule{
		Name:    "replicated",
		MinSize: 1,
		MaxSize: 10,
		Steps: []crush.Step{
			{Kind: crush.StepTake, TakeBucket: "root"},
			{Kind: crush.StepChoose, ChooseKindVal: crush.ChooseLeaf, N: 3, TargetType: crush.TypeHost},
			{Kind: crush.StepEmit},
		},
	}
}
