// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ticket

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultRESTEndpoint is the base URL of the messaging REST API.
const DefaultRESTEndpoint = "https://console.tim.qq.com/v4/"

// RESTURL builds the URL of a messaging REST API command authenticated with an administrator ticket.
//
// command is the "<service>/<command>" path, e.g. "im_open_login_svc/account_import".
func RESTURL(endpoint, command string, appID uint64, admin, adminTicket string, random uint32) string {
	query := url.Values{}
	query.Set("sdkappid", strconv.FormatUint(appID, 10))
	query.Set("identifier", admin)
	query.Set("usersig", adminTicket)
	query.Set("random", strconv.FormatUint(uint64(random), 10))
	query.Set("contenttype", "json")

	return strings.TrimSuffix(endpoint, "/") + "/" + strings.TrimPrefix(command, "/") + "?" + query.Encode()
}
