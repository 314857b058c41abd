package transcribe

import "strings"

// Assemble joins per-chunk transcript segments in chunk order with a single
// space and trims the result. Empty segments from silent chunks are kept in
// place; no deduplication or boundary repair happens, so a word split across
// a chunk boundary stays split.
func Assemble(segments []string) string {
	return strings.TrimSpace(strings.Join(segments, " "))
}
