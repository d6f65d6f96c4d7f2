// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package device derives stable device identities from observable request
// metadata.
package device

import (
	"crypto/sha256"
	"encoding/hex"
)

// UnknownMetadata substitutes for user-agent or source-IP metadata that is
// unavailable on the request. Fingerprinting never fails; absent inputs
// simply collapse onto the shared "Unknown" identity component.
const UnknownMetadata = "Unknown"

// fingerprintLen is the number of hex characters retained from the hash.
// 16 bytes of SHA-256 output is ample for collision resistance at this
// cardinality and keeps device IDs short enough for log lines and keys.
const fingerprintLen = 32

// Fingerprint derives a deterministic device ID from the request's
// user-agent string and source IP address. The same inputs always produce
// the same ID; any change to either input produces a different ID.
func Fingerprint(userAgent, sourceIP string) string {
	if userAgent == "" {
		userAgent = UnknownMetadata
	}
	if sourceIP == "" {
		sourceIP = UnknownMetadata
	}

	sum := sha256.Sum256([]byte(userAgent + "|" + sourceIP))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
