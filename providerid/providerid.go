// Package providerid computes the stable content-addressed fingerprint a
// provider configuration is identified by. Two configurations with
// identical model_id/impl/rpm/tpm fields always hash to the same
// fingerprint, so the router's accounting keys never fragment just because
// two equal configs were constructed independently.
package providerid

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint hashes the canonical serialization of {model_id, impl, rpm,
// tpm}: fields sorted by key, joined as "key=value" pairs with commas, no
// spaces. The field set and ordering are part of the contract — changing
// either changes every existing fingerprint.
func Fingerprint(modelID, impl string, rpm, tpm int) string {
	fields := map[string]string{
		"impl":     impl,
		"model_id": modelID,
		"rpm":      strconv.Itoa(rpm),
		"tpm":      strconv.Itoa(tpm),
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
