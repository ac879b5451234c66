// Package chunker splits policy documents into ordered, labeled chunks
// ready for embedding.
//
// Splitting is deterministic: ordinals depend only on the input text, so
// re-running ingestion for the same document overwrites the same stored
// chunks instead of accumulating duplicates.
//
// A policy produces three kinds of chunks, in order: one structured
// policy-details chunk, one chunk per coverage entry, then the raw document
// text split at section headings. Sections longer than the configured
// maximum are windowed with overlap so no text is lost at boundaries.
package chunker
