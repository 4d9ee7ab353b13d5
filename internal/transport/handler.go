package transport

import (
	"encoding/json"
	"fmt"
	"sync"

	"crushsim/internal/crush"
	"crushsim/internal/liveness"
	"crushsim/internal/sim"
)

// HierarchyParser turns the textual hierarchy/rule format (§6) into a
// crush.Hierarchy and crush.Rule. The format itself — device/bucket/rule
// blocks — is an external collaborator to this module; Handler only
// depends on the parsing contract, not an implementation.
// Production: config.FixtureParser, a YAML stand-in for the textual format.
// Testing: a fake returning a fixed hierarchy/rule pair, or an error.
type HierarchyParser interface {
	Parse(text string) (*crush.Hierarchy, crush.Rule, error)
}

// Handler dispatches inbound frames (§6) against one live Simulation,
// replacing it wholesale on rule/adjust_rule and mutating it in place on
// step/insert/mode. It holds no transport-specific state (no socket, no
// connection) — whatever drives bytes in and out owns that.
type Handler struct {
	parser HierarchyParser

	// mu serializes every Handle call: §5 models the simulator as
	// single-threaded cooperative state, so a daemon accepting frames
	// from multiple connections must not let two frames mutate sim
	// concurrently.
	mu sync.Mutex

	sim          *sim.Simulation
	rule         crush.Rule
	tunables     crush.Tunables
	poolReplicas int
	deathProba   *float64
}

// NewHandler returns a Handler with no simulation installed yet; the
// first rule command is required before step/insert/mode do anything
// useful.
func NewHandler(parser HierarchyParser, tunables crush.Tunables, poolReplicas int) *Handler {
	return &Handler{parser: parser, tunables: tunables, poolReplicas: poolReplicas}
}

// Handle decodes one inbound frame and returns the JSON-encoded outbound
// response. The returned frame's concrete type varies with in.Type; json
// encoding is done here so callers (a socket loop, a test) never need to
// know the per-command response shapes.
func (h *Handler) Handle(data []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	in, err := ParseInbound(data)
	if err != nil {
		return nil, err
	}

	switch in.Type {
	case "rule":
		return h.handleRule(in.Message)
	case "adjust_rule":
		return h.handleAdjustRule(in.Message)
	case "step":
		return h.handleStep()
	case "insert":
		return h.handleInsert(in.ID)
	case "mode":
		return h.handleMode(in.NewMode)
	default:
		return nil, fmt.Errorf("transport: unknown inbound type %q", in.Type)
	}
}

func (h *Handler) handleRule(text string) ([]byte, error) {
	hierarchy, rule, err := h.parser.Parse(text)
	if err != nil {
		return json.Marshal(NewHierarchyFail(err))
	}
	h.rule = rule
	h.sim = sim.NewSetup(hierarchy, rule, h.tunables, h.poolReplicas, h.deathProba)
	h.sim.Bootstrap()
	return json.Marshal(NewHierarchySuccess(hierarchy))
}

func (h *Handler) handleAdjustRule(text string) ([]byte, error) {
	hierarchy, rule, err := h.parser.Parse(text)
	if err != nil {
		return json.Marshal(NewHierarchyFail(err))
	}
	if h.sim == nil {
		return json.Marshal(NewHierarchyFail(fmt.Errorf("transport: adjust_rule before any rule has been installed")))
	}
	h.rule = rule
	h.sim = sim.Reconcile(h.sim, hierarchy, rule, h.tunables)
	return json.Marshal(NewAdjustHierarchySuccess(hierarchy, h.sim.Context.CurrentTime))
}

func (h *Handler) handleStep() ([]byte, error) {
	if h.sim == nil {
		return nil, fmt.Errorf("transport: step before any rule has been installed")
	}
	now, batch, ok := h.sim.Step()
	if !ok {
		now = h.sim.Context.CurrentTime
	}
	return json.Marshal(NewEventsFrame(now, batch))
}

func (h *Handler) handleInsert(id int64) ([]byte, error) {
	if h.sim == nil {
		return nil, fmt.Errorf("transport: insert before any rule has been installed")
	}
	pg := h.sim.PGForObject(id)
	events := sim.Updelsert(pg, id, sim.OpInsert, h.sim.Context)
	for _, ev := range events {
		h.sim.Scheduler.Push(ev)
	}
	return json.Marshal(NewEventsFrame(h.sim.Context.CurrentTime, events))
}

func (h *Handler) handleMode(newMode string) ([]byte, error) {
	p := 0.0
	if newMode == "randomized" {
		p = liveness.DefaultDeathProba
	}
	h.deathProba = &p
	if h.sim != nil {
		h.sim.Context.Oracle.SetDeathProba(p)
	}
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "mode_ack"})
}
