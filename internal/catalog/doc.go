// Package catalog records survey content builds in a SQLite database.
//
// Each successful build of a survey identity is stored with its run id,
// source archive, item count, answer-key size and the inputs that were
// skipped, together with one row per item or pair. The in-memory content
// store stays authoritative for serving; the catalog exists so operators can
// audit what was ingested and when.
package catalog
