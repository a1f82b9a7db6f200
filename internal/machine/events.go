package machine

const (
	EventConnected     = "Connected"
	EventAvailable     = "MachineAvailable"
	EventOccupied      = "MachineOccupied"
	EventBusy          = "MachineBusy"
	EventForceReleased = "MachineForceReleased"
)

const (
	msgBusy          = "The machine is currently in use by another customer"
	msgForceReleased = "The machine was released by an administrator"
)

// Event is a single push to a connected client.
type Event struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId,omitempty"`
	Message      string `json:"message,omitempty"`
}
