package desk

// Event types surfaced to a streaming caller, in the order the state machine
// transitions occur.
const (
	EventStatus        = "status"
	EventNodeUpdate    = "node_update"
	EventToken         = "token"
	EventAgentThought  = "agent_thought"
	EventFinalResponse = "final_response"
	EventError         = "error"
)

// Event is one streamed progress record. Type selects which payload fields
// are populated; unset fields are omitted on the wire.
type Event struct {
	Type string `json:"-"`

	Node   string `json:"node,omitempty"`
	Status string `json:"status,omitempty"`

	ThreadID string `json:"thread_id,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	Intent     string   `json:"intent,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	TicketID   string   `json:"ticket_id,omitempty"`
	Escalated  bool     `json:"escalation,omitempty"`

	Text     string `json:"text,omitempty"`
	Output   string `json:"output,omitempty"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Emitter receives events during a run. Implementations must not block for
// long: a slow or detached consumer is the emitter's problem, never the
// state machine's.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}

// NopEmitter returns an emitter that discards all events.
func NopEmitter() Emitter { return nopEmitter{} }

// orNop returns emit, or the discard emitter when emit is nil.
func orNop(emit Emitter) Emitter {
	if emit == nil {
		return NopEmitter()
	}
	return emit
}

func confidencePtr(v float64) *float64 { return &v }
