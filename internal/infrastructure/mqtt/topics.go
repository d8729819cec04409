package mqtt

import "fmt"

// Topic prefixes for Conductor MQTT traffic.
//
// Command topics address devices directly: command/{location}/{device}.
// Everything Conductor publishes about itself lives under conductor/status.
const (
	// TopicPrefixCommand is the base for device command topics.
	TopicPrefixCommand = "command"

	// TopicPrefixStatus is the base for Conductor status topics.
	TopicPrefixStatus = "conductor/status"
)

// Topics provides builders for Conductor MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.Command("kitchen", "blinds")
//	// Returns: "command/kitchen/blinds"
type Topics struct{}

// Command returns the topic for commands to a device at a location.
//
// Example: command/kitchen/blinds
func (Topics) Command(location, device string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixCommand, location, device)
}

// ServiceStatus returns the topic carrying Conductor's online/offline status.
// The broker publishes the LWT here on unexpected disconnect.
//
// Example: conductor/status/service
func (Topics) ServiceStatus() string {
	return fmt.Sprintf("%s/service", TopicPrefixStatus)
}

// TaskStatus returns the topic for task outcome reports.
//
// Example: conductor/status/task
func (Topics) TaskStatus() string {
	return fmt.Sprintf("%s/task", TopicPrefixStatus)
}

// Control returns the topic Conductor listens on for operator
// requests, such as forcing a plan rebuild.
//
// Example: conductor/control
func (Topics) Control() string {
	return "conductor/control"
}
