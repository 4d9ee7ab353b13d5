package sim

import "crushsim/internal/liveness"

// connKey identifies a primary->replica hop for the ConnSpeed lookup.
type connKey struct {
	From int64
	To   int64
}

// Context is the simulator's mutable run state: the virtual clock, the
// tunables governing peering and the write cost model, and the liveness
// oracle every alive-at query goes through (§4.8, §4.9).
type Context struct {
	CurrentTime     int64
	Timestep        int64
	TimestepsToPeer int64
	// Timeout is carried forward from early designs (§5) but not
	// consulted by any operation; effective timeouts are encoded in the
	// "+1" ack-time suffix and the peering window instead.
	Timeout int64

	// UserConnSpeed[d] is the client-to-primary latency when d acts as
	// primary for a write.
	UserConnSpeed map[int64]int64
	// ConnSpeed[(from,to)] is the primary-to-replica latency. Missing
	// entries fall back to DefaultConnSpeed.
	ConnSpeed map[connKey]int64
	// FailureProba[d] is the overload probability applied to d whether
	// it is acting as primary or replica.
	FailureProba map[int64]float64

	Oracle *liveness.Oracle

	opSeq      int64
	peeringSeq int64
}

// DefaultConnSpeed is used for any primary/replica pair absent from
// ConnSpeed, matching the uniform defaults original_source/backend/main.py
// seeds every device pair with.
const DefaultConnSpeed = 20

// DefaultUserConnSpeed is used for any primary absent from UserConnSpeed.
const DefaultUserConnSpeed = 20

// NewContext builds a Context with the simulator's standard defaults
// (original_source/backend/main.py: timestep=20, timesteps_to_peer=2,
// timeout=70).
func NewContext(oracle *liveness.Oracle) *Context {
	return &Context{
		Timestep:        20,
		TimestepsToPeer: 2,
		Timeout:         70,
		UserConnSpeed:   make(map[int64]int64),
		ConnSpeed:       make(map[connKey]int64),
		FailureProba:    make(map[int64]float64),
		Oracle:          oracle,
	}
}

// connSpeed returns the latency from one device to another, falling back
// to DefaultConnSpeed when unset.
func (c *Context) connSpeed(from, to int64) int64 {
	if v, ok := c.ConnSpeed[connKey{From: from, To: to}]; ok {
		return v
	}
	return DefaultConnSpeed
}

// userConnSpeed returns the client-to-primary latency for d, falling back
// to DefaultUserConnSpeed when unset.
func (c *Context) userConnSpeed(d int64) int64 {
	if v, ok := c.UserConnSpeed[d]; ok {
		return v
	}
	return DefaultUserConnSpeed
}

func (c *Context) failureProba(d int64) float64 {
	return c.FailureProba[d]
}

// NextOpID returns a fresh, monotonically increasing write-operation id
// (§4.8: "op_id is a fresh unique ID per request").
func (c *Context) NextOpID() int64 {
	c.opSeq++
	return c.opSeq
}

// NextPeeringID returns a fresh peering-attempt id (§4.7/§4.9).
func (c *Context) NextPeeringID() int64 {
	c.peeringSeq++
	return c.peeringSeq
}
