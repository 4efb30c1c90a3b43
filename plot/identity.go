package plot

import (
	"os"
	"path/filepath"

	"gitlab.com/NebulousLabs/errors"

	"github.com/raslllos/subspace-1/crypto"
	"github.com/raslllos/subspace-1/persist"
)

const identityFilename = "identity.json"

var identityMetadata = persist.Metadata{
	Header:  "Plot Identity",
	Version: "0.1",
}

// identityPersist is the on-disk shape of identity.json. Only the public key
// and the encrypted secret key are persisted; the Twofish key that decrypts
// EncryptedKey is never written to disk, so reading identity.json alone does
// not expose the secret key (spec.md §6, identity "encrypted at rest").
type identityPersist struct {
	PublicKey    crypto.PublicKey
	EncryptedKey crypto.Ciphertext
}

// deriveIdentityKey derives the Twofish key that encrypts the identity's
// secret key from a caller-supplied passphrase, the same way the teacher's
// wallet derives its encryption key from a wallet password
// (crypto.TwofishKey(crypto.HashObject(password)) in api/wallet_test.go):
// the key is reproducible from the passphrase alone and is never itself
// persisted.
func deriveIdentityKey(passphrase string) crypto.TwofishKey {
	return crypto.TwofishKey(crypto.HashObject(passphrase))
}

// NewFileIdentity generates a fresh ed25519 identity and persists it to
// identityFilename under dir, with its secret key encrypted under a key
// derived from passphrase.
func NewFileIdentity(dir, passphrase string) (*FileIdentity, error) {
	sk, pk, err := crypto.StdKeyGen.Generate()
	if err != nil {
		return nil, errors.AddContext(err, "could not generate identity keypair")
	}
	key := deriveIdentityKey(passphrase)
	ct, err := key.EncryptBytes(sk[:])
	if err != nil {
		return nil, errors.AddContext(err, "could not encrypt identity secret key")
	}

	p := identityPersist{PublicKey: pk, EncryptedKey: ct}
	if err := persist.SaveJSON(identityMetadata, p, identityPath(dir)); err != nil {
		return nil, errors.AddContext(err, "could not persist identity file")
	}
	return &FileIdentity{sk: sk, pk: pk}, nil
}

// LoadFileIdentity loads a previously persisted identity from dir, decrypting
// its secret key with a key derived from passphrase.
func LoadFileIdentity(dir, passphrase string) (*FileIdentity, error) {
	var p identityPersist
	if err := persist.LoadJSON(identityMetadata, &p, identityPath(dir)); err != nil {
		return nil, errors.AddContext(err, "could not load identity file")
	}
	key := deriveIdentityKey(passphrase)
	skBytes, err := key.DecryptBytes(p.EncryptedKey)
	if err != nil {
		return nil, errors.AddContext(err, "could not decrypt identity secret key")
	}
	var sk crypto.SecretKey
	copy(sk[:], skBytes)
	return &FileIdentity{sk: sk, pk: p.PublicKey}, nil
}

// OpenOrCreateFileIdentity loads the identity in dir if one exists, or
// generates and persists a new one, in both cases using passphrase to
// derive the key that protects the secret key at rest.
func OpenOrCreateFileIdentity(dir, passphrase string) (*FileIdentity, error) {
	if _, err := os.Stat(identityPath(dir)); err == nil {
		return LoadFileIdentity(dir, passphrase)
	} else if !os.IsNotExist(err) {
		return nil, errors.AddContext(err, "could not stat identity file")
	}
	return NewFileIdentity(dir, passphrase)
}

func identityPath(dir string) string {
	return filepath.Join(dir, identityFilename)
}
