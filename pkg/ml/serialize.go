package ml

import (
	"bytes"
	"encoding/gob"

	"github.com/horizonml/horizon/pkg/errs"
)

// Encode serializes a fitted model into the opaque artifact format the
// blob store holds.
func Encode(m *GBDT) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, &errs.TrainingError{Reason: "encoding model artifact", Err: err}
	}
	return buf.Bytes(), nil
}

// Decode restores a model from its artifact bytes.
func Decode(data []byte) (*GBDT, error) {
	var m GBDT
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, &errs.ArtifactError{Op: "decode", Err: err}
	}
	return &m, nil
}
