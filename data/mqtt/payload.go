package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// EncodePayload renders a gateway value as an MQTT payload. Scalars are
// sent as their plain text; lists and objects as compact JSON.
func EncodePayload(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte{}, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.Number:
		return []byte(v.String()), nil
	case bool:
		return []byte(strconv.FormatBool(v)), nil
	case int:
		return []byte(strconv.Itoa(v)), nil
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case float64:
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	}

	// Custom encoder so & is not escaped to \u0026
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return bytes.TrimSpace(buffer.Bytes()), nil
}
