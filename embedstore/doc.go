// Package embedstore turns text chunks into retrievable vectors and owns
// them from then on.
//
// The store sits between the pipeline and the chunk repository: the
// pipeline's embed stage calls Embed, its store stage calls Persist, and
// the query engine calls Search. Nothing else writes vectors.
//
// Vector dimensionality is a store-wide invariant. It is either fixed via
// WithDimensions or learned from the first embedded vector; any later
// vector of a different length means the embedding model changed under us,
// which surfaces as a configuration error rather than degraded search
// results.
package embedstore
