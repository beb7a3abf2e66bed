// Package core defines the shared language of assetlink.
//
// This package contains:
//   - Domain entities (AssetRecord, CacheEntry, MatchGroup, LineageLink, Run)
//   - Service interfaces (CacheStore, AssetSource, LinkStore, RunStore)
//   - The error taxonomy shared by discovery, matching and lineage building
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
