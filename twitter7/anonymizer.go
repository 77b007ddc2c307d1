package twitter7

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/chararch/twig/util"
	"github.com/pkg/errors"
)

//SaltSize length of a generated salt
const SaltSize = 32

//Anonymizer replaces account names with salted digests, equal names and salts give equal digests
type Anonymizer struct {
	salt []byte
}

func NewAnonymizer(salt []byte) *Anonymizer {
	s := make([]byte, len(salt))
	copy(s, salt)
	return &Anonymizer{salt: s}
}

//NewHexAnonymizer builds an Anonymizer from a hex encoded salt
func NewHexAnonymizer(salt string) (*Anonymizer, error) {
	b, err := hex.DecodeString(salt)
	if err != nil {
		return nil, errors.Wrap(err, "decode salt")
	}
	return NewAnonymizer(b), nil
}

//NewRandomAnonymizer uses a fresh random salt, digests are then not reproducible across runs
func NewRandomAnonymizer() (*Anonymizer, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "generate salt")
	}
	return &Anonymizer{salt: salt}, nil
}

func (a *Anonymizer) Anonymize(name string) string {
	return util.SaltedMD5(name, a.salt)
}

//Salt hex encoded salt
func (a *Anonymizer) Salt() string {
	return hex.EncodeToString(a.salt)
}
