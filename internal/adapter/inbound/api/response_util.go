package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
)

// Pool both encoders and their underlying buffers.
type pooledEncoder struct {
	buf     *bytes.Buffer
	encoder *json.Encoder
}

var encoderPool = sync.Pool{
	New: func() interface{} {
		buf := bytes.NewBuffer(make([]byte, 0, 512))
		return &pooledEncoder{buf: buf, encoder: json.NewEncoder(buf)}
	},
}

// encodeJSON returns a private copy of the encoded value so it can outlive the pooled buffer.
func encodeJSON(data interface{}) ([]byte, error) {
	pe := encoderPool.Get().(*pooledEncoder)
	defer func() {
		pe.buf.Reset()
		encoderPool.Put(pe)
	}()
	if err := pe.encoder.Encode(data); err != nil {
		return nil, err
	}
	return bytes.Clone(pe.buf.Bytes()), nil
}

// WriteJSON encodes data and writes it with statusCode. Nothing is written when encoding fails.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	body, err := encodeJSON(data)
	if err != nil {
		return err
	}
	return writeBody(w, statusCode, body)
}

func writeBody(w http.ResponseWriter, statusCode int, body []byte) error {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err := w.Write(body)
	return err
}

// decodeJSON strictly decodes a request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return NewValidationError("body", "request body is required")
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}
