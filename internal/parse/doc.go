// Package parse extracts structured records from the textual output of
// platform commands and from small artifact files: process listings, service
// states, kernel and event log lines, shell histories, recycle bin records,
// registry blobs and recent file stores.
//
// Parsers are best effort. Lines or records which do not match the expected
// shape are skipped, never reported as errors, unless the whole input is
// unusable.
package parse
