package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthward/conductor/internal/scheduling/scheduler"
)

// Publisher is the MQTT surface the performer needs.
// Satisfied by mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Performer publishes a task's payload to each of its command topics.
type Performer struct {
	pub Publisher
	qos byte
}

// NewPerformer creates an MQTT-backed performer.
func NewPerformer(pub Publisher, qos byte) *Performer {
	return &Performer{pub: pub, qos: qos}
}

// Perform publishes the task payload to every command topic. All
// topics are attempted even when an earlier publish fails; failures
// are joined into one error.
func (p *Performer) Perform(ctx context.Context, task *scheduler.Task) error {
	payload := []byte(task.Payload)

	var errs []error
	for _, topic := range task.Topics {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.pub.Publish(topic, payload, p.qos, false); err != nil {
			errs = append(errs, fmt.Errorf("publishing to %s: %w", topic, err))
		}
	}

	return errors.Join(errs...)
}

// LogPerformer logs commands instead of publishing them. Used when
// MQTT is disabled, e.g. for dry runs against a new rule set.
type LogPerformer struct {
	log Logger
}

// NewLogPerformer creates a log-only performer.
func NewLogPerformer(log Logger) *LogPerformer {
	if log == nil {
		log = noopLogger{}
	}
	return &LogPerformer{log: log}
}

// Perform logs the would-be publishes and succeeds.
func (p *LogPerformer) Perform(_ context.Context, task *scheduler.Task) error {
	for _, topic := range task.Topics {
		p.log.Info("task command (mqtt disabled)",
			"task", task.ID(),
			"topic", topic,
			"payload", task.Payload,
		)
	}
	return nil
}
