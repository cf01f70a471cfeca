// Package reembed regenerates the vectors of stored documents, typically after
// switching to a different embedding model.
//
// Documents are walked in ID order in batches. Each batch is embedded with
// retry and exponential backoff, normalized to unit length and written back.
// The last finished document is saved as a checkpoint after every batch, so an
// interrupted run resumes where it stopped.
package reembed
