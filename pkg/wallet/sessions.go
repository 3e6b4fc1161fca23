/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"

	"github.com/trustbloc/walletcore/pkg/openid4ci"
	"github.com/trustbloc/walletcore/pkg/openid4vp"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const (
	defaultSessionCacheSize = 1000
	defaultSessionTTL       = 30 * time.Minute
)

// sessions maps opaque session handles to interactions. Handles expire after the TTL and the least
// recently used session is evicted once the table is full.
type sessions struct {
	cache gcache.Cache
}

func newSessions(size int, ttl time.Duration) *sessions {
	if size <= 0 {
		size = defaultSessionCacheSize
	}

	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	return &sessions{cache: gcache.New(size).LRU().Expiration(ttl).Build()}
}

func (s *sessions) add(interaction interface{}) (string, error) {
	id := uuid.NewString()

	if err := s.cache.Set(id, interaction); err != nil {
		return "", walleterror.New(walleterror.SystemError, fmt.Errorf("store session: %w", err)).
			WithComponent(walleterror.WalletComponent)
	}

	return id, nil
}

func (s *sessions) get(id string) (interface{}, error) {
	if id == "" {
		return nil, walleterror.Newf(walleterror.InvalidArgumentError, "no session ID provided").
			WithComponent(walleterror.WalletComponent)
	}

	v, err := s.cache.Get(id)
	if err != nil {
		if errors.Is(err, gcache.KeyNotFoundError) {
			return nil, walleterror.Newf(walleterror.SessionNotFoundError, "session %s not found", id).
				WithComponent(walleterror.WalletComponent)
		}

		return nil, walleterror.New(walleterror.SystemError, fmt.Errorf("load session: %w", err)).
			WithComponent(walleterror.WalletComponent)
	}

	return v, nil
}

func (s *sessions) issuance(id string) (*openid4ci.Interaction, error) {
	v, err := s.get(id)
	if err != nil {
		return nil, err
	}

	interaction, ok := v.(*openid4ci.Interaction)
	if !ok {
		return nil, walleterror.Newf(walleterror.SessionNotFoundError, "session %s is not an issuance session", id).
			WithComponent(walleterror.WalletComponent)
	}

	return interaction, nil
}

func (s *sessions) presentation(id string) (*openid4vp.Interaction, error) {
	v, err := s.get(id)
	if err != nil {
		return nil, err
	}

	interaction, ok := v.(*openid4vp.Interaction)
	if !ok {
		return nil, walleterror.Newf(walleterror.SessionNotFoundError,
			"session %s is not a presentation session", id).WithComponent(walleterror.WalletComponent)
	}

	return interaction, nil
}

func (s *sessions) remove(id string) {
	s.cache.Remove(id)
}
