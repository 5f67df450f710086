package config

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// keyBlobVersion is the envelope format version stamped onto every PRSS
// key blob, so a future generator can change the key derivation without
// breaking config files already in the field.
const keyBlobVersion = 1

// keyBlob is the CBOR-encoded envelope around one subset's PRSS key, hex
// encoded onto the INI value afterwards (mirroring the teacher's
// protocols/lss/config marshal.go convention of CBOR-encoding structured
// key material before it touches the wire/file format).
type keyBlob struct {
	Version int    `cbor:"1,keyasint"`
	Key     []byte `cbor:"2,keyasint"`
}

func encodeKeyBlob(key []byte) ([]byte, error) {
	blob := keyBlob{Version: keyBlobVersion, Key: key}
	data, err := cbor.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("config: encoding prss key blob: %w", err)
	}
	return data, nil
}

func decodeKeyBlob(data []byte) ([]byte, error) {
	var blob keyBlob
	if err := cbor.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("config: decoding prss key blob: %w", err)
	}
	if blob.Version != keyBlobVersion {
		return nil, fmt.Errorf("config: unsupported prss key blob version %d", blob.Version)
	}
	return blob.Key, nil
}
