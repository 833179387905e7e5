package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is a decoded job plus the delivery it arrived on.
type Message struct {
	Job         *Job
	DeliveryTag uint64
	acker       amqp.Acknowledger
}

func newMessage(job *Job, d amqp.Delivery) *Message {
	return &Message{Job: job, DeliveryTag: d.DeliveryTag, acker: d.Acknowledger}
}

func (m *Message) Ack() error {
	return m.acker.Ack(m.DeliveryTag, false)
}

// Nack rejects the delivery. With requeue false the broker routes it to the dead-letter queue.
func (m *Message) Nack(requeue bool) error {
	return m.acker.Nack(m.DeliveryTag, false, requeue)
}

func (m *Message) GetJob() *Job {
	return m.Job
}

var _ MessageInterface = (*Message)(nil)
