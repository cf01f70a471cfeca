// Package ingestion saves conversation text into a session.
//
// Every save creates one new document: the text is validated, the target
// session is checked, the text is embedded and the document is stored with
// its vector so later retrievals can find it.
//
// IngestBatch splits many texts into chunks and embeds the chunks
// concurrently on a worker pool. Nothing is stored unless every chunk
// succeeds.
package ingestion
