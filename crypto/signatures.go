package crypto

import (
	stded25519 "crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
)

const (
	EntropySize   = stded25519.SeedSize
	PublicKeySize = stded25519.PublicKeySize
	SecretKeySize = stded25519.PrivateKeySize
	SignatureSize = stded25519.SignatureSize
)

type (
	PublicKey [PublicKeySize]byte
	SecretKey [SecretKeySize]byte
	Signature [SignatureSize]byte
)

var (
	ErrNilInput         = errors.New("cannot use nil input")
	ErrInvalidSignature = errors.New("invalid signature")
)

type (
	// keyDeriver allows the caller to generate a public-secret key pair based
	// on provided entropy.
	keyDeriver interface {
		deriveKeyPair([EntropySize]byte) (SecretKey, PublicKey)
	}

	// stdGenerator is an implementation of a key pair generator, allowing the
	// caller to generate public-secret key pairs.
	stdGenerator struct {
		entropySource io.Reader
		kd            keyDeriver
	}
)

// Generate creates a public-secret keypair that can be used to sign and
// verify messages.
func (sg stdGenerator) Generate() (sk SecretKey, pk PublicKey, err error) {
	var entropy [EntropySize]byte
	_, err = sg.entropySource.Read(entropy[:])
	if err != nil {
		return
	}
	sk, pk = sg.kd.deriveKeyPair(entropy)
	return sk, pk, nil
}

// GenerateDeterministic generates keys deterministically using the input
// entropy. The input entropy must be 32 bytes in length.
func (sg stdGenerator) GenerateDeterministic(entropy [EntropySize]byte) (SecretKey, PublicKey) {
	return sg.kd.deriveKeyPair(entropy)
}

// ed25519Deriver is an implementation of keyDeriver that uses
// ed25519.NewKeyFromSeed to derive keys.
type ed25519Deriver struct{}

// deriveKeyPair derives a public-secret key pair from the provided seed.
func (ed ed25519Deriver) deriveKeyPair(entropy [EntropySize]byte) (sk SecretKey, pk PublicKey) {
	priv := stded25519.NewKeyFromSeed(entropy[:])
	copy(sk[:], priv)
	copy(pk[:], priv.Public().(stded25519.PublicKey))
	return
}

// StdKeyGen is a stdGenerator based on crypto/rand and ed25519Deriver.
var StdKeyGen stdGenerator = stdGenerator{entropySource: rand.Reader, kd: ed25519Deriver{}}

// SignHash signs a message using a secret key.
func SignHash(data Hash, sk SecretKey) (sig Signature, err error) {
	copy(sig[:], stded25519.Sign(stded25519.PrivateKey(sk[:]), data[:]))
	return sig, nil
}

// VerifyHash uses a public key and input data to verify a signature.
func VerifyHash(data Hash, pk PublicKey, sig Signature) error {
	if !stded25519.Verify(stded25519.PublicKey(pk[:]), data[:], sig[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// PublicKey returns the public key that corresponds to a secret key.
func (sk SecretKey) PublicKey() (pk PublicKey) {
	copy(pk[:], sk[32:])
	return
}
