// Package licenza issues per-module license keys, caches activated keys in a
// local file and validates them against the central registry.
package licenza

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const lunghezzaHash = 16

var formatoChiave = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)-([A-Za-z0-9]{16})$`)

// GeneraChiave derives a MODULE-HASH16 key from a fresh GUID and the shared
// secret. The GUID is returned so the registry can record it.
func GeneraChiave(modulo, secret string) (chiave, guid string) {
	modulo = strings.ToUpper(strings.TrimSpace(modulo))
	for {
		guid = uuid.NewString()
		if hash := hashChiave(guid, secret); len(hash) == lunghezzaHash {
			return modulo + "-" + hash, guid
		}
	}
}

// hashChiave is base64(SHA-256(guid+secret)) without '+', '/' and '=',
// cut to 16 characters. It is shorter only in the unlikely case the digest
// encodes to fewer usable characters.
func hashChiave(guid, secret string) string {
	sum := sha256.Sum256([]byte(guid + secret))
	enc := base64.StdEncoding.EncodeToString(sum[:])
	enc = strings.NewReplacer("+", "", "/", "", "=", "").Replace(enc)
	if len(enc) > lunghezzaHash {
		enc = enc[:lunghezzaHash]
	}
	return enc
}

// VerificaFormato reports whether chiave is a well-formed key for modulo.
func VerificaFormato(chiave, modulo string) bool {
	m := formatoChiave.FindStringSubmatch(strings.TrimSpace(chiave))
	return m != nil && m[1] == strings.ToUpper(strings.TrimSpace(modulo))
}

// Maschera hides all but the last four characters of the hash.
func Maschera(chiave string) string {
	prefix, hash, ok := strings.Cut(chiave, "-")
	if !ok || len(hash) <= 4 {
		return chiave
	}
	return prefix + "-" + strings.Repeat("*", len(hash)-4) + hash[len(hash)-4:]
}
