package transport

import "github.com/matthewgream/battery-pack-sub000/errcode"

// Transport is one of the precedence-ordered delivery paths: local BLE
// link, local WebSocket, or an MQTT publish.
type Transport interface {
	Send(topic string, data []byte) error
	Available() bool
}

// Fanout tries transports in the fixed precedence BLE -> WS -> MQTT
// (conditional), per spec §4.9.
type Fanout struct {
	BLE, WS, MQTT Transport
	failures      int
}

// Deliver attempts delivery in precedence order. If willPublishViaMqtt is
// true, MQTT is skipped in the delivery path (the separate publish path
// will handle it). The first success terminates the attempt.
func (f *Fanout) Deliver(topic string, data []byte, willPublishViaMqtt bool) error {
	candidates := []Transport{f.BLE, f.WS}
	if !willPublishViaMqtt {
		candidates = append(candidates, f.MQTT)
	}
	for _, t := range candidates {
		if t == nil || !t.Available() {
			continue
		}
		if err := t.Send(topic, data); err == nil {
			return nil
		}
	}
	f.failures++
	return errcode.New("fanout.deliver", errcode.DeliverFailed, "no transport accepted delivery")
}

// Publish sends to MQTT only, regardless of delivery precedence.
func (f *Fanout) Publish(topic string, data []byte) error {
	if f.MQTT == nil || !f.MQTT.Available() {
		return errcode.New("fanout.publish", errcode.PublishFailed, "mqtt unavailable")
	}
	if err := f.MQTT.Send(topic, data); err != nil {
		return errcode.New("fanout.publish", errcode.PublishFailed, err.Error())
	}
	return nil
}

func (f *Fanout) Failures() int { return f.failures }

// TopicFor builds the MQTT publish topic for a device id and payload type,
// per spec §4.9's "topic/<id>/<type>".
func TopicFor(id, payloadType string) string { return "topic/" + id + "/" + payloadType }
