package transport

import (
	"errors"

	"crushsim/internal/crush"
)

// fakeParser is a HierarchyParser stub for handler tests: it never touches
// the real textual grammar, returning a fixed hierarchy/rule pair (or a
// canned error) regardless of the text it's handed.
type fakeParser struct {
	hierarchy *crush.Hierarchy
	rule      crush.Rule
	err       error
}

func (f *fakeParser) Parse(text string) (*crush.Hierarchy, crush.Rule, error) {
	if f.err != nil {
		return nil, crush.Rule{}, f.err
	}
	return f.hierarchy, f.rule, nil
}

func buildFakeHierarchy() *crush.Hierarchy {
	root := &crush.Bucket{
		ID: -1, Name: "root", Type: crush.TypeRoot, Alg: crush.AlgStraw2,
		Children: []crush.Child{
			{Bucket: &crush.Bucket{
				ID: -2, Name: "h1", Type: crush.TypeHost, Alg: crush.AlgStraw2,
				Children: []crush.Child{
					{Device: &crush.Device{ID: 1, Name: "osd.1", Weight: crush.UnitWeight}},
					{Device: &crush.Device{ID: 2, Name: "osd.2", Weight: crush.UnitWeight}},
				},
			}},
			{Bucket: &crush.Bucket{
				ID: -3, Name: "h2", Type: crush.TypeHost, Alg: crush.AlgStraw2,
				Children: []crush.Child{
					{Device: &crush.Device{ID: 3, Name: "osd.3", Weight: crush.UnitWeight}},
					{Device: &crush.Device{ID: 4, Name: "osd.4", Weight: crush.UnitWeight}},
				},
			}},
		},
	}
	h, err := crush.NewHierarchy(root)
	if err != nil {
		panic(err)
	}
	return h
}

func fakeRule() crush.Rule {
	return crush.Rule{
		Name:    "replicated",
		MinSize: 1,
		MaxSize: 10,
		Steps: []crush.Step{
			{Kind: crush.StepTake, TakeBucket: "root"},
			{Kind: crush.StepChoose, ChooseKindVal: crush.ChooseLeaf, N: 2, TargetType: crush.TypeHost},
			{Kind: crush.StepEmit},
		},
	}
}

var errBadText = errors.New("transport: malformed rule text")
