package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message pairs a decoded Job with the delivery state needed to settle it
// on the broker. Settle each message exactly once, with Ack or Nack.
type Message struct {
	job         *Job
	deliveryTag uint64
	ch          *amqp.Channel
}

func newMessage(job *Job, deliveryTag uint64, ch *amqp.Channel) *Message {
	return &Message{job: job, deliveryTag: deliveryTag, ch: ch}
}

// Ack marks the job as handled and removes it from the queue.
func (m *Message) Ack() error {
	return m.ch.Ack(m.deliveryTag, false)
}

// Nack rejects the job. With requeue false the broker dead-letters it.
func (m *Message) Nack(requeue bool) error {
	return m.ch.Nack(m.deliveryTag, false, requeue)
}

// GetJob returns the job carried by this message.
func (m *Message) GetJob() *Job {
	return m.job
}
