/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4ci

import (
	"fmt"
	"time"

	"github.com/trustbloc/walletcore/pkg/doc/jwt"
)

const (
	jwtProofType       = "jwt"
	jwtProofTypeHeader = "openid4vci-proof+jwt"
)

type proofClaims struct {
	Issuer   string `json:"iss,omitempty"`
	Audience string `json:"aud"`
	IssuedAt int64  `json:"iat"`
	Nonce    string `json:"nonce,omitempty"`
}

// buildProof signs a key proof for the credential issuer. The kid header is the signer's verification
// method, which binds issued credentials to the wallet DID.
func buildProof(signer jwt.Signer, clientID, credentialIssuer, nonce string) (*jwtProof, error) {
	token, err := jwt.Sign(signer, &proofClaims{
		Issuer:   clientID,
		Audience: credentialIssuer,
		IssuedAt: time.Now().Unix(),
		Nonce:    nonce,
	}, jwt.WithType(jwtProofTypeHeader))
	if err != nil {
		return nil, fmt.Errorf("sign proof: %w", err)
	}

	return &jwtProof{ProofType: jwtProofType, JWT: token}, nil
}
