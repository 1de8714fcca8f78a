package peer

import "github.com/vmihailenco/msgpack/v5"

// controlLabel names the negotiated data channel every call carries.
const controlLabel = "control"

// Control message types.
const (
	controlHangup = "hangup"
	controlHello  = "hello"
)

// controlMessage is a msgpack frame on the control channel.
type controlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// helloPayload introduces the sender once the channel opens.
type helloPayload struct {
	ID     string `msgpack:"id"`
	Client string `msgpack:"client"`
}

func (m controlMessage) decodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

func encodeControl(t string, payload any) ([]byte, error) {
	msg := controlMessage{Type: t}
	if payload != nil {
		b, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = b
	}
	return msgpack.Marshal(msg)
}

func decodeControl(data []byte) (controlMessage, error) {
	var msg controlMessage
	err := msgpack.Unmarshal(data, &msg)
	return msg, err
}
