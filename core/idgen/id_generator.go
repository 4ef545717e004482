// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Make makes a short run ID with a 6 byte timestamp and 3 bytes of entropy.
// Collection runs tag their log lines with it.
func Make() string {
	return makeAt(time.Now())
}

func makeAt(t time.Time) string {
	entropy := [3]byte{'a', 'a', 'a'} // debug

	_, _ = rand.Read(entropy[:])

	return maketime(t) + base64.RawURLEncoding.EncodeToString(entropy[:])
}

func maketime(t time.Time) string {
	return t.Format("150405")
}
