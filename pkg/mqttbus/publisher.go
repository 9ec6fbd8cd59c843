package mqttbus

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads to one topic.
type IPublisher interface {
	Publish(payload string) error
	PublishQos(qos byte, retained bool, payload string) error
	Close()
}

// Publisher binds the shared MQTT client to a single topic.
type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Publish sends at QoS 0 (at most once).
func (p *Publisher) Publish(payload string) error {
	return p.PublishQos(0, false, payload)
}

// PublishQos sends with an explicit QoS; QoS 1 is used for result events
// that must survive redelivery (consumers dedup by payload hash).
func (p *Publisher) PublishQos(qos byte, retained bool, payload string) error {
	token := p.client.Publish(p.topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, token.Error())
	}
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("mqttbus: publisher client disconnected")
	}
}
