package live

// MessageType represents the type of live protocol message
type MessageType uint8

const (
	// Frame types
	FramePatches MessageType = 0x00
	FrameEvent   MessageType = 0x01
	FrameControl MessageType = 0x02
	FrameMount   MessageType = 0x03
)

// Control messages
const (
	ControlHello = "HELLO"
	ControlState = "STATE"
	ControlPing  = "PING"
	ControlPong  = "PONG"
)

// EventType represents client-side event types
type EventType uint8

const (
	EventScroll          EventType = 0x01
	EventReduceMotion    EventType = 0x02
	EventSurfaceLost     EventType = 0x03
	EventSurfaceRestored EventType = 0x04
	EventRenderError     EventType = 0x05
	EventPointer         EventType = 0x06
)

// String returns the event name used in logs and metrics
func (t EventType) String() string {
	switch t {
	case EventScroll:
		return "scroll"
	case EventReduceMotion:
		return "reduce_motion"
	case EventSurfaceLost:
		return "surface_lost"
	case EventSurfaceRestored:
		return "surface_restored"
	case EventRenderError:
		return "render_error"
	case EventPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// Event represents a client-side event. Which fields are set depends on
// Type: Scroll for EventScroll, On for EventReduceMotion, X and Y for
// EventPointer, Message for EventSurfaceLost and EventRenderError.
type Event struct {
	Type    EventType
	Scroll  float32
	On      bool
	X, Y    float32
	Message string
}

// ServerFrame is a decoded server-to-client frame
type ServerFrame struct {
	Type MessageType

	// Control is the control message name for FrameControl
	Control string
	// Session and Seq are set on HELLO
	Session string
	Seq     uint64
	// State is set on STATE
	State string

	// Mode and Markup are set on FrameMount
	Mode   string
	Markup string

	// Patches are set on FramePatches
	Patches []WirePatch
}

// WirePatch is a patch as it travels to the client. Markup carries the
// rendered subtree of a node replacement.
type WirePatch struct {
	Op     uint8
	NodeID uint32
	Key    string
	Value  string
	Markup string
}
