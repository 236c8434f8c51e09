// Package archive unpacks uploaded survey archives into a working directory.
//
// Extract accepts tar, gzip-compressed tar and zip containers (sniffed from
// their magic bytes) and classifies every regular file by extension: audio
// assets are written to disk for the item builder to move into storage, JSON
// sidecars are parsed in memory and returned keyed by base name. Content
// problems (malformed JSON, oversized or unsafe entries, duplicate names) are
// recorded as skips so the best-effort policy stays observable; only an
// unreadable or unsupported container is an error.
package archive
