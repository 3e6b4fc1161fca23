/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ldproof creates and verifies linked data proofs on JSON-LD credentials.
package ldproof

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"
	"github.com/piprate/json-gold/ld"

	"github.com/trustbloc/walletcore/pkg/doc/jwt"
)

// Supported proof types.
const (
	Ed25519Signature2018 = "Ed25519Signature2018"
	Ed25519Signature2020 = "Ed25519Signature2020"
	JSONWebSignature2020 = "JsonWebSignature2020"
)

const (
	proofKey               = "proof"
	contextKey             = "@context"
	jwsKey                 = "jws"
	proofValueKey          = "proofValue"
	defaultProofPurpose    = "assertionMethod"
	canonicalizationFormat = "application/n-quads"
)

var (
	// ErrNoProof is returned when a document carries no proof.
	ErrNoProof = errors.New("document has no proof")

	// ErrUnsupportedProofType is returned for proof suites this package does not implement.
	ErrUnsupportedProofType = errors.New("unsupported proof type")
)

// Sign adds a proof of the given type to doc. The proof's verificationMethod is the signer's key ID.
func Sign(doc map[string]interface{}, signer jwt.Signer, proofType string, loader ld.DocumentLoader) error {
	if len(signer.Algs()) == 0 {
		return fmt.Errorf("signer %s supports no algorithm", signer.KeyID())
	}

	alg := signer.Algs()[0]

	if proofType != JSONWebSignature2020 && alg != jose.EdDSA {
		return fmt.Errorf("%s requires an Ed25519 key", proofType)
	}

	proof := map[string]interface{}{
		"type":               proofType,
		"created":            time.Now().UTC().Format(time.RFC3339),
		"verificationMethod": signer.KeyID(),
		"proofPurpose":       defaultProofPurpose,
	}

	tbs, err := toBeSigned(doc, proof, loader)
	if err != nil {
		return err
	}

	switch proofType {
	case Ed25519Signature2018, JSONWebSignature2020:
		header := detachedHeader(alg)

		sig, signErr := signer.SignPayload(append([]byte(header+"."), tbs...), alg)
		if signErr != nil {
			return fmt.Errorf("sign proof: %w", signErr)
		}

		proof[jwsKey] = header + ".." + base64.RawURLEncoding.EncodeToString(sig)
	case Ed25519Signature2020:
		sig, signErr := signer.SignPayload(tbs, alg)
		if signErr != nil {
			return fmt.Errorf("sign proof: %w", signErr)
		}

		proofValue, encErr := multibase.Encode(multibase.Base58BTC, sig)
		if encErr != nil {
			return fmt.Errorf("encode proof value: %w", encErr)
		}

		proof[proofValueKey] = proofValue
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedProofType, proofType)
	}

	doc[proofKey] = proof

	return nil
}

// Verify checks every proof of doc with keys obtained from fetcher.
func Verify(
	ctx context.Context,
	doc map[string]interface{},
	fetcher jwt.PublicKeyFetcher,
	loader ld.DocumentLoader,
) error {
	var proofs []map[string]interface{}

	switch p := doc[proofKey].(type) {
	case map[string]interface{}:
		proofs = append(proofs, p)
	case []interface{}:
		for _, item := range p {
			if m, ok := item.(map[string]interface{}); ok {
				proofs = append(proofs, m)
			}
		}
	}

	if len(proofs) == 0 {
		return ErrNoProof
	}

	issuer := issuerID(doc)

	for _, proof := range proofs {
		if err := verifyProof(ctx, doc, proof, issuer, fetcher, loader); err != nil {
			return err
		}
	}

	return nil
}

func verifyProof(
	ctx context.Context,
	doc, proof map[string]interface{},
	issuer string,
	fetcher jwt.PublicKeyFetcher,
	loader ld.DocumentLoader,
) error {
	proofType, _ := proof["type"].(string)
	vm, _ := proof["verificationMethod"].(string)

	if vm == "" {
		return errors.New("proof has no verificationMethod")
	}

	key, err := fetcher(ctx, issuer, vm)
	if err != nil {
		return fmt.Errorf("fetch public key %q: %w", vm, err)
	}

	tbs, err := toBeSigned(doc, proof, loader)
	if err != nil {
		return err
	}

	switch proofType {
	case Ed25519Signature2018, JSONWebSignature2020:
		jws, _ := proof[jwsKey].(string)

		return verifyDetachedJWS(jws, tbs, key.Key)
	case Ed25519Signature2020:
		proofValue, _ := proof[proofValueKey].(string)

		_, sig, decErr := multibase.Decode(proofValue)
		if decErr != nil {
			return fmt.Errorf("decode proof value: %w", decErr)
		}

		return verifySignature(jose.EdDSA, key.Key, tbs, sig)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedProofType, proofType)
	}
}

func issuerID(doc map[string]interface{}) string {
	switch i := doc["issuer"].(type) {
	case string:
		return i
	case map[string]interface{}:
		id, _ := i["id"].(string)

		return id
	default:
		return ""
	}
}

func detachedHeader(alg jose.SignatureAlgorithm) string {
	header, _ := json.Marshal(map[string]interface{}{ //nolint:errchkjson
		"alg":  string(alg),
		"b64":  false,
		"crit": []string{"b64"},
	})

	return base64.RawURLEncoding.EncodeToString(header)
}

func verifyDetachedJWS(jws string, tbs []byte, pub interface{}) error {
	parts := strings.Split(jws, "..")
	if len(parts) != 2 { //nolint:gomnd
		return errors.New("proof jws is not a detached JWS")
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("decode jws header: %w", err)
	}

	var header struct {
		Alg string `json:"alg"`
		B64 *bool  `json:"b64"`
	}

	if err = json.Unmarshal(headerBytes, &header); err != nil {
		return fmt.Errorf("unmarshal jws header: %w", err)
	}

	if header.B64 == nil || *header.B64 {
		return errors.New("jws header must set b64 to false")
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("decode jws signature: %w", err)
	}

	return verifySignature(jose.SignatureAlgorithm(header.Alg), pub, append([]byte(parts[0]+"."), tbs...), sig)
}

func verifySignature(alg jose.SignatureAlgorithm, pub interface{}, msg, sig []byte) error {
	switch k := pub.(type) {
	case ed25519.PublicKey:
		if alg != jose.EdDSA {
			return fmt.Errorf("algorithm %s does not match Ed25519 key", alg)
		}

		if !ed25519.Verify(k, msg, sig) {
			return errors.New("ed25519: invalid signature")
		}

		return nil
	case *ecdsa.PublicKey:
		size := (k.Curve.Params().BitSize + 7) / 8 //nolint:gomnd
		if alg != jose.ES256 || len(sig) != 2*size {
			return fmt.Errorf("algorithm %s does not match ECDSA key", alg)
		}

		digest := sha256.Sum256(msg)
		r := new(big.Int).SetBytes(sig[:size])
		s := new(big.Int).SetBytes(sig[size:])

		if !ecdsa.Verify(k, digest[:], r, s) {
			return errors.New("ecdsa: invalid signature")
		}

		return nil
	default:
		return fmt.Errorf("unsupported public key type %T", pub)
	}
}

func toBeSigned(doc, proof map[string]interface{}, loader ld.DocumentLoader) ([]byte, error) {
	options := make(map[string]interface{}, len(proof)+1)

	for k, v := range proof {
		if k == jwsKey || k == proofValueKey || k == "signatureValue" {
			continue
		}

		options[k] = v
	}

	options[contextKey] = doc[contextKey]

	canonicalOptions, err := canonicalize(options, loader)
	if err != nil {
		return nil, fmt.Errorf("canonicalize proof options: %w", err)
	}

	unsigned := make(map[string]interface{}, len(doc))

	for k, v := range doc {
		if k != proofKey {
			unsigned[k] = v
		}
	}

	canonicalDoc, err := canonicalize(unsigned, loader)
	if err != nil {
		return nil, fmt.Errorf("canonicalize document: %w", err)
	}

	optionsHash := sha256.Sum256(canonicalOptions)
	docHash := sha256.Sum256(canonicalDoc)

	return append(optionsHash[:], docHash[:]...), nil
}

func canonicalize(doc map[string]interface{}, loader ld.DocumentLoader) ([]byte, error) {
	// json-gold expects generic JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var input map[string]interface{}

	if err = json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}

	opts := ld.NewJsonLdOptions("")
	opts.ProcessingMode = ld.JsonLd_1_1
	opts.Algorithm = "URDNA2015"
	opts.Format = canonicalizationFormat
	opts.ProduceGeneralizedRdf = true

	if loader != nil {
		opts.DocumentLoader = loader
	}

	view, err := ld.NewJsonLdProcessor().Normalize(input, opts)
	if err != nil {
		return nil, fmt.Errorf("normalize JSON-LD document: %w", err)
	}

	result, ok := view.(string)
	if !ok {
		return nil, errors.New("normalize JSON-LD document: invalid view")
	}

	return []byte(result), nil
}
