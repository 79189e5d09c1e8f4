// Package fingerprint derives a stable document identifier from a source URL.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a deterministic identifier for the document at url.
// The same URL always yields the same fingerprint, so repeated requests can
// skip re-ingestion. The full URL (including query string) participates in
// the hash: pre-signed URLs for the same blob with different signatures are
// treated as distinct documents, which errs on the side of re-ingesting.
func Fingerprint(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}
