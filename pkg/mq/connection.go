package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange every mailnight event is published to.
// Routing keys are "email.sent" and "mailbox.unread".
const ExchangeName = "events"

const (
	connectionPrefix = "mailnight"
	heartbeat        = 10 * time.Second
)

// connectionConfig names the connection so the broker's management UI shows
// which role (publisher, push consumer, log worker) opened it.
func connectionConfig(role string) amqp091.Config {
	props := amqp091.NewConnectionProperties()
	name := connectionPrefix
	if role != "" {
		name += "/" + role
	}
	props.SetClientConnectionName(name)
	return amqp091.Config{
		Properties: props,
		Heartbeat:  heartbeat,
		Locale:     "en_US",
	}
}

// NewConnection dials the broker at url. role ends up in the connection name.
func NewConnection(url, role string) (*amqp091.Connection, error) {
	conn, err := amqp091.DialConfig(url, connectionConfig(role))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ as %s: %w", role, err)
	}
	return conn, nil
}

// DeclareExchange makes sure the durable events exchange exists. Publisher
// and consumers both call it so neither depends on start order.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil)
}
