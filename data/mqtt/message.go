package mqtt

import "github.com/OlliL/bosch-thermostat-mqtt/data/model"

// Message is one publishable reading.
type Message struct {
	Topic   string
	Payload []byte
}

// MessagesFor turns the leaf records of a result set into messages for the
// given device, in traversal order.
func MessagesFor(device *model.Device, result model.ScanResult) ([]Message, error) {
	leaves := model.Flatten(result)
	msgs := make([]Message, 0, len(leaves))
	for _, r := range leaves {
		payload, err := EncodePayload(r.Value)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{
			Topic:   device.Topic(r.ID),
			Payload: payload,
		})
	}
	return msgs, nil
}
