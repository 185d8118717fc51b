// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tc3

import (
	"strings"
	"sync"

	"github.com/siderolabs/go-tc3-signature/pkg/hashutil"
)

// DeriveKey derives the signing key for a date and service:
//
//	k0 = HMAC("TC3" + secretKey, date)
//	k1 = HMAC(k0, service)
//	k2 = HMAC(k1, "tc3_request")
//
// Every step feeds raw HMAC bytes into the next one.
func DeriveKey(secretKey, date, service string) []byte {
	k0 := hashutil.HMACSHA256([]byte(SecretPrefix+secretKey), []byte(date))
	k1 := hashutil.HMACSHA256(k0, []byte(service))

	return hashutil.HMACSHA256(k1, []byte(RequestTerminator))
}

type derivedKey struct {
	key        []byte
	generation uint64
}

// derivedKeyCache keeps one derived key per date/service.
//
// Entries derived from a rotated secret key are never returned.
type derivedKeyCache struct {
	values map[string]derivedKey
	mu     sync.RWMutex
}

func newDerivedKeyCache() *derivedKeyCache {
	return &derivedKeyCache{
		values: make(map[string]derivedKey),
	}
}

func lookupKey(date, service string) string {
	return date + "/" + service
}

func (c *derivedKeyCache) get(secretKey string, generation uint64, date, service string) []byte {
	cacheKey := lookupKey(date, service)

	c.mu.RLock()
	entry, ok := c.values[cacheKey]
	c.mu.RUnlock()

	if ok && entry.generation == generation {
		return entry.key
	}

	key := DeriveKey(secretKey, date, service)

	c.mu.Lock()
	defer c.mu.Unlock()

	// one entry per service is enough, stale dates are dropped
	for k, v := range c.values {
		if v.generation != generation || !strings.HasPrefix(k, date+"/") {
			delete(c.values, k)
		}
	}

	c.values[cacheKey] = derivedKey{
		key:        key,
		generation: generation,
	}

	return key
}
