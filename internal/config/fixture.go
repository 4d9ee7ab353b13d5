// Package config handles the simulator-side configuration surface: the
// YAML tunables/fixture file a caller points cmd/crushsimd at. The real
// textual hierarchy/rule grammar (§6) is an external collaborator this
// module never implements; FixtureParser is the stand-in that lets a demo
// binary hand the engine a Hierarchy/Rule without one, the way
// config/config.go's CLI context file stands in for a full control plane.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"crushsim/internal/crush"
)

// Fixture is the YAML shape a caller writes by hand to describe a
// hierarchy, a rule, and the tunables to evaluate it with — everything
// NewSetup needs, short of a real §6 textual parse.
type Fixture struct {
	Tunables     FixtureTunables `yaml:"tunables"`
	PoolReplicas int             `yaml:"pool_replicas"`
	Devices      []FixtureDevice `yaml:"devices"`
	Buckets      []FixtureBucket `yaml:"buckets"`
	Rule         FixtureRule     `yaml:"rule"`
}

type FixtureTunables struct {
	ChooseTotalTries int `yaml:"choose_total_tries"`
}

type FixtureDevice struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Class string `yaml:"class,omitempty"`
}

// FixtureBucket is one bucket declaration. Items reference either another
// bucket's name or a device's name; the loader resolves which at build
// time, matching parser.py's seen_buckets/seen_devices two-pass lookup.
type FixtureBucket struct {
	ID    int64         `yaml:"id"`
	Name  string        `yaml:"name"`
	Type  string        `yaml:"type"`
	Alg   string        `yaml:"alg,omitempty"`
	Items []FixtureItem `yaml:"items"`
}

type FixtureItem struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type FixtureRule struct {
	Name    string        `yaml:"name"`
	ID      int           `yaml:"id"`
	MinSize int           `yaml:"min_size"`
	MaxSize int           `yaml:"max_size"`
	Steps   []FixtureStep `yaml:"steps"`
}

// FixtureStep mirrors crush.Step's closed shape: Kind selects which of
// the remaining fields apply (take: Bucket/Class; choose/chooseleaf:
// N/Type; emit: none).
type FixtureStep struct {
	Kind   string `yaml:"kind"` // take | choose | chooseleaf | emit
	Bucket string `yaml:"bucket,omitempty"`
	Class  string `yaml:"class,omitempty"`
	N      int    `yaml:"n,omitempty"`
	Type   string `yaml:"type,omitempty"`
}

// ParseFixture decodes and builds a Hierarchy/Rule from YAML text, also
// returning the fixture's tunables and pool replica count. FixtureParser's
// Parse wraps it; cmd/crushsimd --fixture reaches it through that wrapper
// via transport.Handler, which evaluates with its own tunables and pool
// size rather than the fixture's.
func ParseFixture(text string) (*crush.Hierarchy, crush.Rule, crush.Tunables, int, error) {
	var f Fixture
	if err := yaml.Unmarshal([]byte(text), &f); err != nil {
		return nil, crush.Rule{}, crush.Tunables{}, 0, fmt.Errorf("config: decode fixture: %w", err)
	}

	devices := make(map[string]*crush.Device, len(f.Devices))
	for _, d := range f.Devices {
		devices[d.Name] = &crush.Device{ID: d.ID, Name: d.Name, Class: d.Class, Weight: crush.UnitWeight}
	}

	buckets := make(map[string]*crush.Bucket, len(f.Buckets))
	for _, b := range f.Buckets {
		btype, ok := crush.ParseBucketType(b.Type)
		if !ok {
			return nil, crush.Rule{}, crush.Tunables{}, 0, fmt.Errorf("config: unknown bucket type %q for bucket %q", b.Type, b.Name)
		}
		alg := crush.AlgStraw2
		if b.Alg == "uniform" {
			alg = crush.AlgUniform
		}
		buckets[b.Name] = &crush.Bucket{ID: b.ID, Name: b.Name, Type: btype, Alg: alg}
	}

	var root *crush.Bucket
	for _, b := range f.Buckets {
		bucket := buckets[b.Name]
		for _, item := range b.Items {
			weight := crush.Weight(item.Weight)
			if child, ok := buckets[item.Name]; ok {
				child.Weight = weight
				bucket.Children = append(bucket.Children, crush.Child{Bucket: child})
				continue
			}
			if child, ok := devices[item.Name]; ok {
				child.Weight = weight
				bucket.Children = append(bucket.Children, crush.Child{Device: child})
				continue
			}
			return nil, crush.Rule{}, crush.Tunables{}, 0, fmt.Errorf("config: bucket %q references unknown item %q", b.Name, item.Name)
		}
		if bucket.Type == crush.TypeRoot {
			if root != nil {
				return nil, crush.Rule{}, crush.Tunables{}, 0, fmt.Errorf("config: multiple root buckets declared")
			}
			root = bucket
		}
	}
	if root == nil {
		return nil, crush.Rule{}, crush.Tunables{}, 0, fmt.Errorf("config: no root bucket declared")
	}

	hierarchy, err := crush.NewHierarchy(root)
	if err != nil {
		return nil, crush.Rule{}, crush.Tunables{}, 0, fmt.Errorf("config: build hierarchy: %w", err)
	}

	rule, err := buildRule(f.Rule)
	if err != nil {
		return nil, crush.Rule{}, crush.Tunables{}, 0, err
	}

	tunables := crush.Tunables{ChooseTotalTries: f.Tunables.ChooseTotalTries}
	return hierarchy, rule, tunables, f.PoolReplicas, nil
}

func buildRule(fr FixtureRule) (crush.Rule, error) {
	rule := crush.Rule{Name: fr.Name, ID: fr.ID, MinSize: fr.MinSize, MaxSize: fr.MaxSize}
	for _, fs := range fr.Steps {
		switch fs.Kind {
		case "take":
			rule.Steps = append(rule.Steps, crush.Step{Kind: crush.StepTake, TakeBucket: fs.Bucket, TakeClass: fs.Class})
		case "choose", "chooseleaf":
			btype, ok := crush.ParseBucketType(fs.Type)
			if !ok {
				return crush.Rule{}, fmt.Errorf("config: unknown step target type %q", fs.Type)
			}
			kind := crush.ChooseBucket
			if fs.Kind == "chooseleaf" {
				kind = crush.ChooseLeaf
			}
			rule.Steps = append(rule.Steps, crush.Step{Kind: crush.StepChoose, ChooseKindVal: kind, N: fs.N, TargetType: btype})
		case "emit":
			rule.Steps = append(rule.Steps, crush.Step{Kind: crush.StepEmit})
		default:
			return crush.Rule{}, fmt.Errorf("config: unknown rule step kind %q", fs.Kind)
		}
	}
	return rule, nil
}

// FixtureParser implements transport.HierarchyParser over the YAML
// fixture format. Tunables/PoolReplicas carried in the fixture are
// exposed via LastTunables/LastPoolReplicas after a successful Parse,
// since HierarchyParser's interface is hierarchy/rule-only.
type FixtureParser struct {
	LastTunables     crush.Tunables
	LastPoolReplicas int
}

func (p *FixtureParser) Parse(text string) (*crush.Hierarchy, crush.Rule, error) {
	h, rule, tunables, poolReplicas, err := ParseFixture(text)
	if err != nil {
		return nil, crush.Rule{}, err
	}
	p.LastTunables = tunables
	p.LastPoolReplicas = poolReplicas
	return h, rule, nil
}
