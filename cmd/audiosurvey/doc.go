// Command audiosurvey publishes survey archives and serves their content.
//
// It is the request layer over the content store: publish installs an
// uploaded archive for a survey identity, items lists what a participant is
// shown, score checks guide answers (or echoes test answers), and resolve maps
// an audio reference to the stored file. catalog and staging expose the
// ingestion audit trail and scratch directories.
package main
