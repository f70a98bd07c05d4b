package descriptor

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// normalize returns data as UTF-8 without a byte order mark. UTF-16 input is
// recognized by its BOM; anything else is treated as UTF-8.
func normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, err
	}
	return out, nil
}
