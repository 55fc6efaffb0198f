// Package cidutil derives and validates the content references (CIDs) that
// model and name records point at. The market core treats references as
// opaque bytes; request-building tooling uses this package so published
// references are well-formed CIDv1 (raw + sha2-256) strings.
package cidutil

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentRef returns the CIDv1 string (raw multicodec, sha2-256 multihash)
// for a model artifact's bytes.
func ContentRef(data []byte) (string, error) {
	id, err := ContentRefCID(data)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ContentRefCID returns a CIDv1 (raw + sha2-256) derived from data.
func ContentRefCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Validate reports whether ref parses as a defined CID. Tooling calls this
// before submitting publish/update requests so malformed references are
// caught client-side.
func Validate(ref string) error {
	id, err := cid.Decode(ref)
	if err != nil {
		return err
	}
	if !id.Defined() {
		return errors.New("cidutil: undefined cid")
	}
	return nil
}
