/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package kms holds wallet signing keys in memory.
package kms

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/uuid"

	"github.com/trustbloc/walletcore/pkg/doc/jwt"
)

// KeyType is a supported signing key type.
type KeyType string

const (
	ED25519   KeyType = "ED25519"
	ECDSAP256 KeyType = "ECDSAP256"
)

const p256CoordinateSize = 32

// ErrKeyNotFound is returned for unknown key IDs.
var ErrKeyNotFound = errors.New("key not found")

// SupportedKeyTypes lists the key types Create accepts.
func SupportedKeyTypes() []KeyType {
	return []KeyType{ED25519, ECDSAP256}
}

// LocalKMS is a concurrency-safe in-memory key store.
type LocalKMS struct {
	mu   sync.RWMutex
	keys map[string]*Key
	kids map[string]string
}

// NewLocalKMS returns an empty store.
func NewLocalKMS() *LocalKMS {
	return &LocalKMS{
		keys: map[string]*Key{},
		kids: map[string]string{},
	}
}

// Create generates and stores a new key.
func (k *LocalKMS) Create(keyType KeyType) (*Key, error) {
	var (
		priv crypto.Signer
		alg  jose.SignatureAlgorithm
	)

	switch keyType {
	case ED25519:
		_, edKey, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", err)
		}

		priv, alg = edKey, jose.EdDSA
	case ECDSAP256:
		ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate p-256 key: %w", err)
		}

		priv, alg = ecKey, jose.ES256
	default:
		return nil, fmt.Errorf("unsupported key type %q", keyType)
	}

	key := &Key{
		id:      uuid.NewString(),
		keyType: keyType,
		alg:     alg,
		priv:    priv,
	}

	k.mu.Lock()
	k.keys[key.id] = key
	k.mu.Unlock()

	return key, nil
}

// Get returns the key with the given ID.
func (k *LocalKMS) Get(keyID string) (*Key, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
	}

	return key, nil
}

// Bind associates a verification method ID with a stored key.
func (k *LocalKMS) Bind(verificationMethodID, keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[keyID]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
	}

	k.kids[verificationMethodID] = keyID

	return nil
}

// Signer returns a JWS signer for a bound verification method.
func (k *LocalKMS) Signer(verificationMethodID string) (jwt.Signer, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keyID, ok := k.kids[verificationMethodID]
	if !ok {
		return nil, fmt.Errorf("%w: no key bound to %s", ErrKeyNotFound, verificationMethodID)
	}

	return k.keys[keyID].WithKeyID(verificationMethodID), nil
}

// Key is a private signing key. It implements jose.OpaqueSigner so private material never
// leaves the store.
type Key struct {
	id      string
	kid     string
	keyType KeyType
	alg     jose.SignatureAlgorithm
	priv    crypto.Signer
}

// ID returns the store identifier.
func (k *Key) ID() string {
	return k.id
}

// Type returns the key type.
func (k *Key) Type() KeyType {
	return k.keyType
}

// KeyID returns the verification method the key is bound to.
func (k *Key) KeyID() string {
	return k.kid
}

// WithKeyID returns a copy of the key advertising kid in JWS headers.
func (k *Key) WithKeyID(kid string) *Key {
	c := *k
	c.kid = kid

	return &c
}

// PublicKey returns the raw public key.
func (k *Key) PublicKey() crypto.PublicKey {
	return k.priv.Public()
}

// Public implements jose.OpaqueSigner.
func (k *Key) Public() *jose.JSONWebKey {
	return &jose.JSONWebKey{
		Key:       k.priv.Public(),
		KeyID:     k.kid,
		Algorithm: string(k.alg),
		Use:       "sig",
	}
}

// Algs implements jose.OpaqueSigner.
func (k *Key) Algs() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{k.alg}
}

// SignPayload implements jose.OpaqueSigner. ECDSA signatures use the fixed-size R||S form.
func (k *Key) SignPayload(payload []byte, alg jose.SignatureAlgorithm) ([]byte, error) {
	if alg != k.alg {
		return nil, fmt.Errorf("key %s cannot sign with %s", k.id, alg)
	}

	switch priv := k.priv.(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(priv, payload), nil
	case *ecdsa.PrivateKey:
		digest := sha256.Sum256(payload)

		r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
		if err != nil {
			return nil, fmt.Errorf("sign: %w", err)
		}

		return append(padded(r), padded(s)...), nil
	default:
		return nil, fmt.Errorf("unsupported private key %T", priv)
	}
}

func padded(n *big.Int) []byte {
	out := make([]byte, p256CoordinateSize)

	return n.FillBytes(out)
}
