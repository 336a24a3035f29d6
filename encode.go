package logforwarder

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeRecords serializes records into a single JSON array in the given order.
// Field names and order are fixed: ddsource, ddtags, hostname, message, service.
func EncodeRecords(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := r.encode(&buf); err != nil {
			return nil, fmt.Errorf("could not encode record %d: %w", i, err)
		}
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

func (r Record) encode(buf *bytes.Buffer) error {
	fields := [...]struct {
		key   string
		value string
	}{
		{"ddsource", r.Source},
		{"ddtags", r.Tags},
		{"hostname", r.Hostname},
		{"message", r.Message},
		{"service", r.Service},
	}

	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(f.key)
		buf.WriteString(`":`)
		v, err := json.Marshal(f.value)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	return nil
}
