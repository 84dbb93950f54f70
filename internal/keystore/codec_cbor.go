package keystore

import (
	"bytes"
	"errors"

	"github.com/fxamacker/cbor/v2"
)

var cborMagic = []byte("KSTC")

// cborCodec stores the envelope as CBOR behind a four byte magic.
type cborCodec struct{}

func (cborCodec) encode(env *envelope) ([]byte, error) {
	body, err := cbor.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, cborMagic...), body...), nil
}

func (cborCodec) decode(data []byte) (*envelope, error) {
	if !bytes.HasPrefix(data, cborMagic) {
		return nil, errors.New("missing keystore header")
	}
	var env envelope
	if err := cbor.Unmarshal(data[len(cborMagic):], &env); err != nil {
		return nil, err
	}
	return &env, nil
}
