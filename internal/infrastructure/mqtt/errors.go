package mqtt

import "errors"

// Sentinel errors for broker operations. Callers match them with
// errors.Is; wrapped variants carry the topic or broker detail.
var (
	// ErrNotConnected is returned for publish or subscribe attempts
	// while the client has no broker session.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial broker
	// connection cannot be established.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when the broker rejects or drops a
	// publish, including oversized payloads.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscription cannot be
	// established or has no handler.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed is returned when removing a subscription
	// fails broker-side.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0, 1, 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics before they reach the broker.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
