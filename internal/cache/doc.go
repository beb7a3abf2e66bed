// Package cache provides the file-backed implementation of core.CacheStore.
//
// Each dataset key is stored as one JSON document:
//
//	{"timestamp": "2024-01-15T10:30:00.123456Z", "data": [["<qualifiedName>", "<name>", "<kind>"], ...]}
//
// Documents are written to a temporary file in the cache directory and then
// renamed over the previous entry, so readers never observe a partial write.
package cache
