/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/resolver"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/internal/testutil"
	"github.com/trustbloc/walletcore/pkg/kms"
	"github.com/trustbloc/walletcore/pkg/qrcode"
	"github.com/trustbloc/walletcore/pkg/wallet"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const (
	preAuthCode = "pre-auth-code"
	accessToken = "access-token"
	testPIN     = "1234"
	cNonce      = "c-nonce"
	vpNonce     = "vp-nonce"

	degreeDefinition = `{
  "id": "degree-check",
  "input_descriptors": [{
    "id": "degree",
    "name": "University degree",
    "constraints": {
      "fields": [{
        "path": ["$.type", "$.vc.type"],
        "filter": {"type": "array", "contains": {"type": "string", "const": "UniversityDegreeCredential"}}
      }]
    }
  }]
}`
)

// mockServer acts as both credential issuer and verifier.
type mockServer struct {
	t        *testing.T
	server   *httptest.Server
	issuer   *testutil.Issuer
	verifier *testutil.Issuer
	resolver did.Resolver

	mutex     sync.Mutex
	responses []url.Values
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()

	m := &mockServer{
		t:        t,
		issuer:   testutil.NewIssuer(t, kms.ED25519),
		verifier: testutil.NewIssuer(t, kms.ED25519),
		resolver: resolver.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-credential-issuer", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testutil.UniversityDegreeMetadata(m.server.URL)))
	})
	mux.HandleFunc("/oidc/token", m.token)
	mux.HandleFunc("/credential", m.credential)
	mux.HandleFunc("/response", m.response)

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)

	return m
}

func (m *mockServer) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("pre-authorized_code") != preAuthCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

		return
	}

	if r.PostForm.Get("tx_code") != testPIN {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"c_nonce":      cNonce,
	})
}

func (m *mockServer) credential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
		Proof  struct {
			JWT string `json:"jwt"`
		} `json:"proof"`
	}

	if r.Header.Get("Authorization") != "Bearer "+accessToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})

		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})

		return
	}

	proof, err := jwt.Parse(req.Proof.JWT, jwt.WithPublicKeyFetcher(did.NewPublicKeyFetcher(m.resolver)))
	if err != nil || proof.Payload["nonce"] != cNonce {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_proof"})

		return
	}

	holder := did.StripDIDURL(proof.Headers.KeyID)
	doc := m.issuer.CredentialDoc(holder, []string{"UniversityDegreeCredential"}, testutil.UniversityDegreeSubject())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"format":     req.Format,
		"credential": m.issuer.JWTVC(m.t, doc),
	})
}

func (m *mockServer) response(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	vpToken, err := jwt.Parse(r.PostForm.Get("vp_token"), jwt.WithPublicKeyFetcher(did.NewPublicKeyFetcher(m.resolver)))
	if err != nil || vpToken.Payload["nonce"] != vpNonce {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	m.mutex.Lock()
	m.responses = append(m.responses, r.PostForm)
	m.mutex.Unlock()
}

func (m *mockServer) offerURI() string {
	offer := map[string]interface{}{
		"credential_issuer":            m.server.URL,
		"credential_configuration_ids": []string{"UniversityDegreeCredential_jwt_vc_json"},
		"grants": map[string]interface{}{
			"urn:ietf:params:oauth:grant-type:pre-authorized_code": map[string]interface{}{
				"pre-authorized_code": preAuthCode,
				"tx_code":             map[string]interface{}{"input_mode": "numeric", "length": len(testPIN)},
			},
		},
	}

	b, err := json.Marshal(offer)
	require.NoError(m.t, err)

	return "openid-credential-offer://?credential_offer=" + url.QueryEscape(string(b))
}

func (m *mockServer) authorizationRequest() string {
	token, err := jwt.Sign(m.verifier.Signer, map[string]interface{}{
		"iss":           m.verifier.DID,
		"client_id":     m.verifier.DID,
		"nonce":         vpNonce,
		"state":         "state-1",
		"response_type": "vp_token",
		"response_mode": "direct_post",
		"response_uri":  m.server.URL + "/response",
		"exp":           time.Now().Add(5 * time.Minute).Unix(),
		"client_metadata": map[string]interface{}{
			"client_name": "Example Verifier",
			"logo_uri":    "https://verifier.example.com/logo.png",
		},
		"presentation_definition": json.RawMessage(degreeDefinition),
	}, jwt.WithType(jwt.TypeRequestObject))
	require.NoError(m.t, err)

	return "openid-vc://?request=" + url.QueryEscape(token)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestWallet(t *testing.T) {
	ctx := context.Background()
	srv := newMockServer(t)

	w := wallet.New(&wallet.Config{Version: wallet.VersionDetails{WalletVersion: "1.2.0", GitRevision: "abc123"}})

	createdDID, err := w.CreateDID(ctx, &wallet.CreateDIDRequest{DIDMethodType: "key"})
	require.NoError(t, err)
	require.Contains(t, createdDID.DID, "did:key:")
	require.Contains(t, string(createdDID.DIDDoc), createdDID.DID)

	fetched, err := w.FetchDID(ctx, &wallet.FetchDIDRequest{DID: createdDID.DID})
	require.NoError(t, err)
	require.Contains(t, string(fetched.DIDDoc), createdDID.DID)

	var credentials []string

	t.Run("issuance", func(t *testing.T) {
		authorized, err := w.Authorize(ctx, &wallet.AuthorizeRequest{RequestURI: srv.offerURI()})
		require.NoError(t, err)
		require.NotEmpty(t, authorized.SessionID)
		require.True(t, authorized.UserPINRequired)
		require.Equal(t, len(testPIN), authorized.PINLength)

		issuer, err := w.IssuerURI(ctx, &wallet.SessionRequest{SessionID: authorized.SessionID})
		require.NoError(t, err)
		require.Equal(t, srv.server.URL, issuer.IssuerURI)

		_, err = w.RequestCredential(ctx, &wallet.RequestCredentialRequest{SessionID: authorized.SessionID, OTP: "0000"})
		require.True(t, walleterror.HasCode(err, walleterror.InvalidPinError), err)

		issued, err := w.RequestCredential(ctx, &wallet.RequestCredentialRequest{
			SessionID: authorized.SessionID,
			OTP:       testPIN,
		})
		require.NoError(t, err)
		require.Len(t, issued.Credentials, 1)

		credentials = issued.Credentials

		credID, err := w.GetCredID(ctx, &wallet.CredentialsRequest{Credentials: credentials})
		require.NoError(t, err)
		require.Contains(t, credID.CredentialID, "urn:uuid:")

		issuerID, err := w.GetIssuerID(ctx, &wallet.CredentialsRequest{Credentials: credentials})
		require.NoError(t, err)
		require.Equal(t, srv.issuer.DID, issuerID.IssuerID)

		serialized, err := w.SerializeDisplayData(ctx, &wallet.SerializeDisplayDataRequest{
			SessionID:   authorized.SessionID,
			Credentials: credentials,
		})
		require.NoError(t, err)

		display, err := w.ResolveCredentialDisplay(ctx, &wallet.ResolveCredentialDisplayRequest{
			DisplayData: serialized.DisplayData,
		})
		require.NoError(t, err)
		require.Equal(t, "Example University", display.IssuerName)
		require.Len(t, display.Credentials, 1)

		degree := display.Credentials[0]
		require.Equal(t, "University Degree", degree.OverviewName)
		require.Equal(t, "https://example.edu/degree.png", degree.Logo)
		require.Equal(t, "#12107c", degree.BackgroundColor)
		require.Equal(t, "#FFFFFF", degree.TextColor)
		require.Equal(t, "Example University", degree.IssuerName)
		require.Len(t, degree.Claims, 6)
		require.Equal(t, "Surname", degree.Claims[0].Label)
		require.Equal(t, "Smith", degree.Claims[0].RawValue)
		require.Equal(t, "Given Name", degree.Claims[1].Label)

		status, err := w.CredentialStatusVerifier(ctx, &wallet.CredentialsRequest{Credentials: credentials})
		require.NoError(t, err)
		require.True(t, status.Verified)
	})

	t.Run("presentation", func(t *testing.T) {
		processed, err := w.ProcessAuthorizationRequest(ctx, &wallet.ProcessAuthorizationRequestRequest{
			AuthorizationRequest: srv.authorizationRequest(),
			StoredCredentials:    credentials,
		})
		require.NoError(t, err)
		require.Equal(t, credentials, processed.MatchedCredentials)

		verifier, err := w.VerifierDisplayData(ctx, &wallet.SessionRequest{SessionID: processed.SessionID})
		require.NoError(t, err)
		require.Equal(t, srv.verifier.DID, verifier.DID)
		require.Equal(t, "Example Verifier", verifier.Name)

		matched, err := w.GetMatchedSubmissionRequirements(ctx, &wallet.MatchRequest{
			SessionID:   processed.SessionID,
			Credentials: credentials,
		})
		require.NoError(t, err)
		require.Len(t, matched.Requirements, 1)
		require.Len(t, matched.Requirements[0].Descriptors, 1)
		require.Equal(t, "degree", matched.Requirements[0].Descriptors[0].ID)
		require.Equal(t, credentials, matched.Requirements[0].Descriptors[0].MatchedVCs)

		_, err = w.PresentCredential(ctx, &wallet.PresentCredentialRequest{
			SessionID:   processed.SessionID,
			Credentials: credentials,
		})
		require.NoError(t, err)

		srv.mutex.Lock()
		require.Len(t, srv.responses, 1)
		srv.mutex.Unlock()

		_, err = w.VerifierDisplayData(ctx, &wallet.SessionRequest{SessionID: processed.SessionID})
		require.True(t, walleterror.HasCode(err, walleterror.SessionNotFoundError), err)
	})

	t.Run("activities", func(t *testing.T) {
		logged, err := w.ActivityLogger(ctx)
		require.NoError(t, err)
		require.Len(t, logged.Activities, 2)

		parsed, err := w.ParseActivities(ctx, &wallet.ParseActivitiesRequest{Activities: logged.Activities})
		require.NoError(t, err)
		require.Len(t, parsed.Activities, 2)

		require.Equal(t, activitylogger.OperationIssuance, parsed.Activities[0].Operation)
		require.Equal(t, "Example University", parsed.Activities[0].Client)
		require.Equal(t, activitylogger.StatusSuccess, parsed.Activities[0].Status)
		require.Equal(t, activitylogger.OperationPresentation, parsed.Activities[1].Operation)
		require.Equal(t, "Example Verifier", parsed.Activities[1].Client)
		require.NotZero(t, parsed.Activities[1].Timestamp)
	})

	require.Equal(t, "1.2.0", w.GetVersionDetails().WalletVersion)
}

func TestWallet_Authorize(t *testing.T) {
	ctx := context.Background()
	srv := newMockServer(t)

	t.Run("from QR code", func(t *testing.T) {
		png, err := qrcode.Encode(srv.offerURI(), 512)
		require.NoError(t, err)

		w := wallet.New(nil)

		authorized, err := w.Authorize(ctx, &wallet.AuthorizeRequest{QRCode: base64.StdEncoding.EncodeToString(png)})
		require.NoError(t, err)
		require.True(t, authorized.UserPINRequired)
	})

	t.Run("no offer", func(t *testing.T) {
		_, err := wallet.New(nil).Authorize(ctx, &wallet.AuthorizeRequest{})
		require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError), err)
	})

	t.Run("invalid offer", func(t *testing.T) {
		_, err := wallet.New(nil).Authorize(ctx, &wallet.AuthorizeRequest{RequestURI: "openid-credential-offer://?x=1"})
		require.Error(t, err)
		require.NotEqual(t, walleterror.SystemError, walleterror.ToTriple(err).Code)
	})
}

func TestWallet_RequestCredential(t *testing.T) {
	ctx := context.Background()
	srv := newMockServer(t)

	t.Run("unknown session", func(t *testing.T) {
		_, err := wallet.New(nil).RequestCredential(ctx, &wallet.RequestCredentialRequest{SessionID: "unknown"})
		require.True(t, walleterror.HasCode(err, walleterror.SessionNotFoundError), err)
	})

	t.Run("no DID", func(t *testing.T) {
		w := wallet.New(nil)

		authorized, err := w.Authorize(ctx, &wallet.AuthorizeRequest{RequestURI: srv.offerURI()})
		require.NoError(t, err)

		_, err = w.RequestCredential(ctx, &wallet.RequestCredentialRequest{SessionID: authorized.SessionID, OTP: testPIN})
		require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError), err)
	})

	t.Run("DID not controlled by the wallet", func(t *testing.T) {
		w := wallet.New(nil)

		authorized, err := w.Authorize(ctx, &wallet.AuthorizeRequest{RequestURI: srv.offerURI()})
		require.NoError(t, err)

		_, err = w.RequestCredential(ctx, &wallet.RequestCredentialRequest{
			SessionID: authorized.SessionID,
			DID:       srv.issuer.DID,
			OTP:       testPIN,
		})
		require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError), err)
	})

	t.Run("presentation session", func(t *testing.T) {
		w := wallet.New(nil)

		processed, err := w.ProcessAuthorizationRequest(ctx, &wallet.ProcessAuthorizationRequestRequest{
			AuthorizationRequest: srv.authorizationRequest(),
		})
		require.NoError(t, err)
		require.Empty(t, processed.MatchedCredentials)

		_, err = w.RequestCredential(ctx, &wallet.RequestCredentialRequest{SessionID: processed.SessionID})
		require.True(t, walleterror.HasCode(err, walleterror.SessionNotFoundError), err)
	})
}

func TestWallet_Sessions(t *testing.T) {
	ctx := context.Background()
	srv := newMockServer(t)

	t.Run("expired", func(t *testing.T) {
		w := wallet.New(&wallet.Config{SessionTTL: 10 * time.Millisecond})

		authorized, err := w.Authorize(ctx, &wallet.AuthorizeRequest{RequestURI: srv.offerURI()})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, err = w.IssuerURI(ctx, &wallet.SessionRequest{SessionID: authorized.SessionID})

			return walleterror.HasCode(err, walleterror.SessionNotFoundError)
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("evicted", func(t *testing.T) {
		w := wallet.New(&wallet.Config{SessionCacheSize: 1})

		first, err := w.Authorize(ctx, &wallet.AuthorizeRequest{RequestURI: srv.offerURI()})
		require.NoError(t, err)

		second, err := w.Authorize(ctx, &wallet.AuthorizeRequest{RequestURI: srv.offerURI()})
		require.NoError(t, err)

		_, err = w.IssuerURI(ctx, &wallet.SessionRequest{SessionID: first.SessionID})
		require.True(t, walleterror.HasCode(err, walleterror.SessionNotFoundError), err)

		_, err = w.IssuerURI(ctx, &wallet.SessionRequest{SessionID: second.SessionID})
		require.NoError(t, err)
	})

	t.Run("no session ID", func(t *testing.T) {
		_, err := wallet.New(nil).IssuerURI(ctx, &wallet.SessionRequest{})
		require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError), err)
	})
}

func TestWallet_CredentialInfo(t *testing.T) {
	ctx := context.Background()
	w := wallet.New(nil)

	for _, op := range []func() error{
		func() error { _, err := w.GetCredID(ctx, &wallet.CredentialsRequest{}); return err },
		func() error { _, err := w.GetIssuerID(ctx, &wallet.CredentialsRequest{}); return err },
		func() error { _, err := w.CredentialStatusVerifier(ctx, &wallet.CredentialsRequest{}); return err },
		func() error { _, err := w.WellKnownDIDConfig(ctx, &wallet.WellKnownDIDConfigRequest{}); return err },
		func() error { _, err := w.FetchDID(ctx, &wallet.FetchDIDRequest{}); return err },
		func() error {
			_, err := w.SerializeDisplayData(ctx, &wallet.SerializeDisplayDataRequest{Credentials: []string{"x"}})
			return err
		},
	} {
		err := op()
		require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError), err)
	}

	_, err := w.GetCredID(ctx, &wallet.CredentialsRequest{Credentials: []string{"not a credential"}})
	require.True(t, walleterror.HasCode(err, walleterror.MalformedCredential), err)

	_, err = w.CreateDID(ctx, &wallet.CreateDIDRequest{DIDMethodType: "ion"})
	require.True(t, walleterror.HasCode(err, walleterror.UnsupportedDIDMethod), err)

	issuer := testutil.NewIssuer(t, kms.ED25519)

	result, err := w.WellKnownDIDConfig(ctx, &wallet.WellKnownDIDConfigRequest{IssuerID: issuer.DID})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.Empty(t, result.ServiceURL)

	_, err = w.ParseActivities(ctx, &wallet.ParseActivitiesRequest{Activities: []string{"{}"}})
	require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError), err)

	_, err = w.ResolveCredentialDisplay(ctx, &wallet.ResolveCredentialDisplayRequest{DisplayData: "{"})
	require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError), err)
}
