/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4vp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/presexch"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const (
	tokenLifetimeSeconds = 600
	selfIssuedIssuer     = "https://self-issued.me/v2/openid-vc"
	vpFormat             = "jwt_vp"
	emptyPresentation    = `{"@context":["https://www.w3.org/2018/credentials/v1"],"type":["VerifiablePresentation"]}`
)

type holderPresentation struct {
	holder      string
	credentials []*credential.Credential
	positions   map[*credential.Credential]int
	index       int
	signer      jwt.Signer
}

// add places the credential in the presentation once and returns its position.
func (p *holderPresentation) add(vc *credential.Credential) int {
	if pos, ok := p.positions[vc]; ok {
		return pos
	}

	p.positions[vc] = len(p.credentials)
	p.credentials = append(p.credentials, vc)

	return p.positions[vc]
}

// createAuthorizedResponse builds one presentation per holder DID. The vp_token is the single signed
// presentation, or a JSON array of them when the selection spans several holders.
func (i *Interaction) createAuthorizedResponse(
	ctx context.Context,
	req *requestObject,
	pd *presexch.PresentationDefinition,
	selection []*presexch.SelectedDescriptor,
) (*authorizedResponse, error) {
	var presentations []*holderPresentation

	byHolder := map[string]*holderPresentation{}
	mappings := make([]*presexch.InputDescriptorMapping, 0, len(selection))

	for _, s := range selection {
		if len(s.Credential.SubjectIDs) == 0 {
			return nil, newError(walleterror.SelectionError, presentOperation,
				fmt.Errorf("credential %s has no subject ID to bind the presentation to", s.Credential.ID))
		}

		holder := s.Credential.SubjectIDs[0]

		p, ok := byHolder[holder]
		if !ok {
			p = &holderPresentation{
				holder:    holder,
				positions: map[*credential.Credential]int{},
				index:     len(presentations),
			}
			byHolder[holder] = p
			presentations = append(presentations, p)
		}

		mappings = append(mappings, &presexch.InputDescriptorMapping{
			ID:     s.DescriptorID,
			Format: vpFormat,
			Path:   fmt.Sprintf("$[%d]", p.index),
			PathNested: &presexch.InputDescriptorMapping{
				ID:     s.DescriptorID,
				Format: string(s.Credential.Format),
				Path:   fmt.Sprintf("$.verifiableCredential[%d]", p.add(s.Credential)),
			},
		})
	}

	if len(presentations) == 1 {
		for _, m := range mappings {
			m.Path = "$"
		}
	}

	submission := pd.NewPresentationSubmission(mappings)

	vpTokens := make([]string, 0, len(presentations))

	for _, p := range presentations {
		signer, err := i.holderSigner(ctx, p.holder)
		if err != nil {
			return nil, err
		}

		p.signer = signer

		vpToken, err := signPresentation(p, req)
		if err != nil {
			return nil, newError(walleterror.SystemError, presentOperation, err)
		}

		vpTokens = append(vpTokens, vpToken)
	}

	vpToken := vpTokens[0]

	if len(vpTokens) > 1 {
		b, err := json.Marshal(vpTokens)
		if err != nil {
			return nil, newError(walleterror.SystemError, presentOperation, err)
		}

		vpToken = string(b)
	}

	idToken, err := createIDToken(req, submission, presentations[0])
	if err != nil {
		return nil, newError(walleterror.SystemError, presentOperation, err)
	}

	return &authorizedResponse{IDToken: idToken, VPToken: vpToken, Submission: submission, State: req.State}, nil
}

func (i *Interaction) holderSigner(ctx context.Context, holder string) (jwt.Signer, error) {
	res, err := i.cfg.DIDResolver.Resolve(ctx, holder)
	if err != nil {
		return nil, newError(walleterror.DIDResolutionError, presentOperation,
			fmt.Errorf("resolve holder DID for signing: %w", err))
	}

	vmID, err := res.AssertionMethodID()
	if err != nil {
		return nil, newError(walleterror.SelectionError, presentOperation, err)
	}

	signer, err := i.cfg.KeyManager.Signer(vmID)
	if err != nil {
		return nil, newError(walleterror.SelectionError, presentOperation,
			fmt.Errorf("no signing key for %s: %w", vmID, err))
	}

	return signer, nil
}

// newPresentation returns the VP document of the holder. JWT and SD-JWT credentials are embedded as
// strings and linked data credentials as objects.
func newPresentation(holder string, credentials []*credential.Credential) ([]byte, error) {
	vp, err := sjson.Set(emptyPresentation, "id", "urn:uuid:"+uuid.NewString())
	if err != nil {
		return nil, err
	}

	if vp, err = sjson.Set(vp, "holder", holder); err != nil {
		return nil, err
	}

	if vp, err = sjson.SetRaw(vp, "verifiableCredential", "[]"); err != nil {
		return nil, err
	}

	for _, vc := range credentials {
		embedded := vc.Serialize()

		if vc.Format != credential.FormatLDPVC {
			b, marshalErr := json.Marshal(embedded)
			if marshalErr != nil {
				return nil, marshalErr
			}

			embedded = string(b)
		}

		if vp, err = sjson.SetRaw(vp, "verifiableCredential.-1", embedded); err != nil {
			return nil, fmt.Errorf("add credential %s: %w", vc.ID, err)
		}
	}

	return []byte(vp), nil
}

func signPresentation(p *holderPresentation, req *requestObject) (string, error) {
	vp, err := newPresentation(p.holder, p.credentials)
	if err != nil {
		return "", fmt.Errorf("create presentation: %w", err)
	}

	now := time.Now().Unix()

	token, err := jwt.Sign(p.signer, &vpTokenClaims{
		VP:    vp,
		Nonce: req.Nonce,
		Exp:   now + tokenLifetimeSeconds,
		Iss:   p.holder,
		Aud:   req.ClientID,
		Nbf:   now,
		Iat:   now,
		Jti:   uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("sign vp_token: %w", err)
	}

	return token, nil
}

func createIDToken(
	req *requestObject,
	submission *presexch.PresentationSubmission,
	p *holderPresentation,
) (string, error) {
	now := time.Now().Unix()

	token, err := jwt.Sign(p.signer, &idTokenClaims{
		VPToken: idTokenVPToken{PresentationSubmission: submission},
		Nonce:   req.Nonce,
		Exp:     now + tokenLifetimeSeconds,
		Iss:     selfIssuedIssuer,
		Aud:     req.ClientID,
		Sub:     p.holder,
		Nbf:     now,
		Iat:     now,
		Jti:     uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("sign id_token: %w", err)
	}

	return token, nil
}
