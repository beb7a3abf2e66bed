package output

import "time"

// JSON documents emitted in json mode.

// AssetOutput is one asset record.
type AssetOutput struct {
	QualifiedName string `json:"qualified_name"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
}

// DiscoverOutput is the result of the discover command.
type DiscoverOutput struct {
	Dataset string         `json:"dataset"`
	Records int            `json:"records"`
	Kinds   map[string]int `json:"kinds"`
	Assets  []AssetOutput  `json:"assets,omitempty"`
}

// MatchOutput is one match group.
type MatchOutput struct {
	Level  string `json:"level"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// AmbiguityOutput is one ambiguity warning.
type AmbiguityOutput struct {
	Level      string   `json:"level"`
	Source     string   `json:"source"`
	Chosen     string   `json:"chosen"`
	Candidates []string `json:"candidates"`
}

// LinkOutcomeOutput is one lineage outcome.
type LinkOutcomeOutput struct {
	Level  string `json:"level"`
	Source string `json:"source"`
	Target string `json:"target"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HopOutput is the result of one link.
type HopOutput struct {
	Link      string              `json:"link"`
	Matches   []MatchOutput       `json:"matches"`
	Ambiguous []AmbiguityOutput   `json:"ambiguous,omitempty"`
	Outcomes  []LinkOutcomeOutput `json:"outcomes,omitempty"`
}

// SyncSummary counts a run.
type SyncSummary struct {
	Discovered int `json:"discovered"`
	Matched    int `json:"matched"`
	Ambiguous  int `json:"ambiguous"`
	Created    int `json:"created"`
	Verified   int `json:"verified"`
	Failed     int `json:"failed"`
}

// SyncOutput is the result of the sync command.
type SyncOutput struct {
	RunID      string         `json:"run_id,omitempty"`
	DryRun     bool           `json:"dry_run"`
	DurationMS int64          `json:"duration_ms"`
	Discovered map[string]int `json:"discovered"`
	Hops       []HopOutput    `json:"hops"`
	Summary    SyncSummary    `json:"summary"`
}

// CacheStatusOutput is the status of one cache entry.
type CacheStatusOutput struct {
	Dataset    string  `json:"dataset"`
	Present    bool    `json:"present"`
	Valid      bool    `json:"valid"`
	AgeSeconds float64 `json:"age_seconds"`
	Records    int     `json:"records"`
}

// ObjectOutput is one bucket object.
type ObjectOutput struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// RegisterOutput is the result of objects register.
type RegisterOutput struct {
	Listed     int                 `json:"listed"`
	Existing   int                 `json:"existing"`
	Registered int                 `json:"registered"`
	DryRun     bool                `json:"dry_run"`
	Missing    []string            `json:"missing,omitempty"`
	PII        map[string][]string `json:"pii,omitempty"`
}

// RunOutput is one recorded run.
type RunOutput struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	Links       []string    `json:"links"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Counts      SyncSummary `json:"counts"`
	Error       string      `json:"error,omitempty"`
}
