package codec

import (
	"github.com/goccy/go-json"
)

// Manifest files are indented so that they diff cleanly.
func encodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
