// Package storage holds the small persistent state the scene service keeps
// between restarts.
//
// Store is a typed key/value store. Each storage type is bound to one JSON file
// under the storage directory and loaded on first use. Unknown types behave as
// empty: lookups report not found instead of failing.
//
// FeatureFlag reads a one-line flag file once and caches the answer.
package storage
