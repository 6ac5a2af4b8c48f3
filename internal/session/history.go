package session

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one conversational contribution. Immutable once appended.
type Turn struct {
	Role    Role
	Content string
}

// History is a bounded ordered log of turns. When an append would exceed
// capacity the oldest turns are evicted first. It is only mutated from the
// orchestrator goroutine.
type History struct {
	capacity int
	turns    []Turn
	onUpdate func([]Turn)
}

// NewHistory returns a history keeping at most maxTurns exchanges, one user
// plus one assistant turn each.
func NewHistory(maxTurns int) *History {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &History{capacity: maxTurns * 2}
}

// OnUpdate registers a hook invoked with a fresh snapshot after every
// mutation, for the presentation layer. Set it before the session starts;
// it runs on the orchestrator goroutine.
func (h *History) OnUpdate(fn func([]Turn)) { h.onUpdate = fn }

// Append inserts a turn at the end, evicting from the front when the bound
// is exceeded.
func (h *History) Append(turn Turn) {
	h.turns = append(h.turns, turn)
	if n := len(h.turns) - h.capacity; n > 0 {
		h.turns = h.turns[n:]
	}
	if h.onUpdate != nil {
		h.onUpdate(h.Snapshot())
	}
}

// Snapshot returns a copy of the current turns.
func (h *History) Snapshot() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }
