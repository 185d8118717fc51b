// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/siderolabs/go-tc3-signature/pkg/message"
	"github.com/siderolabs/go-tc3-signature/pkg/tc3"
)

var errUnknownSecretID = errors.New("unknown secret ID")

// singleSecretResolver resolves only the secret ID of the given signer.
func singleSecretResolver(signer *tc3.Signer) message.SecretResolver {
	return message.SecretResolverFunc(func(secretID string) (message.RequestVerifier, error) {
		if secretID != signer.Credentials().SecretID() {
			return nil, fmt.Errorf("%w: %s", errUnknownSecretID, secretID)
		}

		return signer, nil
	})
}

type failingIssuer struct{}

func (failingIssuer) Issue(string, time.Duration, []byte) (string, error) {
	return "", errors.New("issuer unavailable")
}
