package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// recordWidth is the number of fields in a serialized record.
const recordWidth = 3

// timestampLayouts are accepted when reading. The first one is used for writing.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type document struct {
	Timestamp string            `json:"timestamp"`
	Data      []json.RawMessage `json:"data"`
}

// Encode serializes an entry into the on-disk JSON format.
func Encode(entry *core.CacheEntry) ([]byte, error) {
	data := make([][recordWidth]string, 0, len(entry.Records))
	for _, r := range entry.Records {
		data = append(data, [recordWidth]string{r.QualifiedName, r.Name, string(r.Kind)})
	}

	out := struct {
		Timestamp string                `json:"timestamp"`
		Data      [][recordWidth]string `json:"data"`
	}{
		Timestamp: entry.CapturedAt.UTC().Format(time.RFC3339Nano),
		Data:      data,
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode parses the on-disk JSON format. Records that are not arrays of
// exactly three strings are skipped; their indexes are returned so the caller
// can report them. A document without a parseable timestamp is an error.
func Decode(raw []byte) (*core.CacheEntry, []int, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Timestamp == "" {
		return nil, nil, errors.New("missing timestamp")
	}

	capturedAt, err := parseTimestamp(doc.Timestamp)
	if err != nil {
		return nil, nil, err
	}

	entry := &core.CacheEntry{
		CapturedAt: capturedAt,
		Records:    make([]core.AssetRecord, 0, len(doc.Data)),
	}
	var skipped []int
	for i, item := range doc.Data {
		var fields []string
		if err := json.Unmarshal(item, &fields); err != nil || len(fields) != recordWidth {
			skipped = append(skipped, i)
			continue
		}
		entry.Records = append(entry.Records, core.AssetRecord{
			QualifiedName: fields[0],
			Name:          fields[1],
			Kind:          core.ParseKind(fields[2]),
		})
	}
	return entry, skipped, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
