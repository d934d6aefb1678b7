package client

import (
	"bytes"
	"encoding/json"
)

// encodeBody turns a request body into bytes. Raw []byte bodies pass through;
// any other value is JSON encoded without HTML escaping, so non-ASCII and
// markup characters are sent as-is in UTF-8.
func encodeBody(body any) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return b, false, nil
	case json.RawMessage:
		return b, true, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, false, err
	}

	// Encoder terminates each value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), true, nil
}
