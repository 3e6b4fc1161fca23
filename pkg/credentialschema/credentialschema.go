/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credentialschema resolves credential display data from issuer metadata.
package credentialschema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/issuermetadata"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("credentialschema")

type resolveOpts struct {
	metadata        *issuermetadata.Metadata
	issuerURI       string
	fetcher         *issuermetadata.Fetcher
	preferredLocale string
}

// ResolveOpt configures Resolve.
type ResolveOpt func(*resolveOpts)

// WithIssuerMetadata resolves against the given metadata.
func WithIssuerMetadata(m *issuermetadata.Metadata) ResolveOpt {
	return func(o *resolveOpts) {
		o.metadata = m
	}
}

// WithIssuerURI fetches the metadata of the given credential issuer.
func WithIssuerURI(uri string) ResolveOpt {
	return func(o *resolveOpts) {
		o.issuerURI = uri
	}
}

// WithMetadataFetcher sets the fetcher used with WithIssuerURI.
func WithMetadataFetcher(f *issuermetadata.Fetcher) ResolveOpt {
	return func(o *resolveOpts) {
		o.fetcher = f
	}
}

// WithPreferredLocale selects the locale of labels and names. When the issuer offers no display for
// the locale, the first one listed is used. The locale actually chosen is recorded on every item.
func WithPreferredLocale(locale string) ResolveOpt {
	return func(o *resolveOpts) {
		o.preferredLocale = locale
	}
}

// Resolve returns the display data of the given credentials in input order. Each credential is matched by
// type to a credential configuration of the issuer metadata.
func Resolve(ctx context.Context, credentials []*credential.Credential, opts ...ResolveOpt) (*ResolvedDisplayData, error) {
	o := &resolveOpts{}

	for _, opt := range opts {
		opt(o)
	}

	metadata, err := o.issuerMetadata(ctx)
	if err != nil {
		return nil, err
	}

	displays := make([]CredentialDisplay, 0, len(credentials))

	for i, vc := range credentials {
		if vc == nil {
			return nil, walleterror.Newf(walleterror.InvalidArgumentError, "credential at index %d is nil", i).
				WithComponent(walleterror.DisplayComponent)
		}

		display, resolveErr := resolveCredential(vc, metadata.Configurations(), o.preferredLocale)
		if resolveErr != nil {
			return nil, resolveErr
		}

		displays = append(displays, *display)
	}

	logger.Debugc(ctx, "Resolved display data", logfields.WithIssuerURI(metadata.CredentialIssuer),
		logfields.WithTotalCredentials(len(credentials)))

	return &ResolvedDisplayData{
		IssuerDisplay:      issuerDisplay(metadata, o.preferredLocale),
		CredentialDisplays: displays,
	}, nil
}

func (o *resolveOpts) issuerMetadata(ctx context.Context) (*issuermetadata.Metadata, error) {
	if o.metadata != nil {
		return o.metadata, nil
	}

	if o.issuerURI == "" {
		return nil, walleterror.Newf(walleterror.InvalidArgumentError,
			"either issuer metadata or an issuer URI must be provided").WithComponent(walleterror.DisplayComponent)
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = issuermetadata.NewFetcher()
	}

	m, err := fetcher.Get(ctx, o.issuerURI)
	if err != nil {
		return nil, walleterror.New(walleterror.MetadataFetchError, err).WithComponent(walleterror.DisplayComponent)
	}

	return m, nil
}

func issuerDisplay(m *issuermetadata.Metadata, locale string) *ResolvedIssuerDisplay {
	localized := m.LocalizedIssuerDisplay(locale)
	if localized == nil {
		return &ResolvedIssuerDisplay{Name: m.CredentialIssuer}
	}

	d := &ResolvedIssuerDisplay{}

	if err := copier.Copy(d, localized); err != nil {
		logger.Warn("Failed to copy issuer display", log.WithError(err))
	}

	d.Logo = logo(localized.Logo)

	return d
}

var errNoMatch = errors.New("no credential configuration matches")

func resolveCredential(
	vc *credential.Credential,
	configs []*issuermetadata.CredentialConfiguration,
	locale string,
) (*CredentialDisplay, error) {
	var mismatches []string

	for _, config := range configs {
		if !typesMatch(vc, config) {
			continue
		}

		claims, err := resolveClaims(vc.Subject(), config.ClaimTemplates(), "", locale)
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("%s: %v", config.ID, err))

			continue
		}

		return &CredentialDisplay{
			Overview: overview(vc, config, locale),
			Claims:   claims,
		}, nil
	}

	err := errNoMatch
	if len(mismatches) > 0 {
		err = fmt.Errorf("%w: %s", errNoMatch, strings.Join(mismatches, "; "))
	}

	return nil, walleterror.Newf(walleterror.TemplateMismatchError, "credential %s of types %v: %w",
		vc.ID, vc.Types, err).WithComponent(walleterror.DisplayComponent)
}

func typesMatch(vc *credential.Credential, config *issuermetadata.CredentialConfiguration) bool {
	types := config.CredentialTypes()

	return len(types) > 0 && lo.EveryBy(types, vc.HasType)
}

func overview(
	vc *credential.Credential,
	config *issuermetadata.CredentialConfiguration,
	locale string,
) *CredentialOverview {
	localized := config.LocalizedDisplay(locale)
	if localized == nil {
		name := vc.Name
		if name == "" && len(vc.Types) > 0 {
			name = vc.Types[len(vc.Types)-1]
		}

		return &CredentialOverview{Name: name}
	}

	o := &CredentialOverview{}

	if err := copier.Copy(o, localized); err != nil {
		logger.Warn("Failed to copy credential overview", log.WithError(err))
	}

	o.Logo = logo(localized.Logo)

	return o
}

func logo(l *issuermetadata.Logo) *Logo {
	if l == nil {
		return nil
	}

	return &Logo{URL: l.Location(), AltText: l.AltText}
}

// resolveClaims walks the claim templates in document order. Templates without display
// properties describe nested objects. Missing mandatory claims fail the match.
func resolveClaims(subject, templates gjson.Result, prefix, locale string) ([]ResolvedClaim, error) {
	var (
		claims []ResolvedClaim
		err    error
	)

	templates.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		path := prefix + escapePath(name)

		if !isLeafTemplate(value) {
			if !value.IsObject() {
				return true
			}

			var nested []ResolvedClaim

			nested, err = resolveClaims(subject, value, path+".", locale)
			if err != nil {
				return false
			}

			claims = append(claims, nested...)

			return true
		}

		claim := subject.Get(path)
		if !claim.Exists() {
			if value.Get("mandatory").Bool() {
				err = fmt.Errorf("mandatory claim %q is missing", prefix+name)

				return false
			}

			return true
		}

		var resolved *ResolvedClaim

		resolved, err = resolveClaim(prefix+name, claim, value, locale)
		if err != nil {
			return false
		}

		claims = append(claims, *resolved)

		return true
	})

	return claims, err
}

func resolveClaim(rawID string, claim, template gjson.Result, locale string) (*ResolvedClaim, error) {
	t := &issuermetadata.Claim{}

	if err := json.Unmarshal([]byte(template.Raw), t); err != nil {
		return nil, fmt.Errorf("claim template %q: %w", rawID, err)
	}

	if display := t.LocalizedDisplay(locale); display != nil {
		t.Display = []issuermetadata.LocalizedClaimDisplay{*display}
	}

	raw := claim.String()
	if !claim.IsObject() && !claim.IsArray() && claim.Type != gjson.String {
		raw = claim.Raw
	}

	resolved := &ResolvedClaim{
		RawID:     rawID,
		Label:     rawID,
		ValueType: t.ValueType,
		RawValue:  raw,
		Value:     raw,
		Order:     t.Order,
		Pattern:   t.Pattern,
		Mask:      t.Mask,
	}

	if len(t.Display) > 0 {
		resolved.Label = t.Display[0].Name
		resolved.Locale = t.Display[0].Locale
	}

	if t.Mask != "" {
		masked, err := mask(raw, t.Mask)
		if err != nil {
			return nil, fmt.Errorf("claim %q: %w", rawID, err)
		}

		resolved.Value = masked
	}

	return resolved, nil
}

func isLeafTemplate(template gjson.Result) bool {
	if !template.IsObject() {
		return false
	}

	for _, k := range []string{"display", "value_type", "mask", "mandatory", "order"} {
		if template.Get(k).Exists() {
			return true
		}
	}

	return len(template.Map()) == 0
}

func escapePath(name string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "#", `\#`, "|", `\|`, "@", `\@`)

	return r.Replace(name)
}
