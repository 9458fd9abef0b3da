package utils

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CanonicalCBOR encodes with canonical CBOR, so equal data gives byte
// identical encodings.
var CanonicalCBOR cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("utils: failed to create CBOR enc mode: %v", err))
	}
	CanonicalCBOR = em
}
