// Package backup exports the local cache to a single JSON document and
// imports such a document back.
//
// A document holds one member per cached collection, keyed by its short
// name (the cache key without the electripro- namespace), plus exportedAt:
//
//	{
//	  "budgets": [...],
//	  "config": {...},
//	  "exportedAt": "2026-03-15T10:00:00Z",
//	  ...
//	}
//
// Import only touches the cache. Stores that are already loaded keep their
// in-memory state until they are initialized again.
package backup

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/electripro/electripro/internal/cache"
	"github.com/tidwall/gjson"
)

// ExportedAtKey is the document member holding the export timestamp.
const ExportedAtKey = "exportedAt"

// ConfigKey is the one member stored as a single object rather than an
// array of records.
const ConfigKey = "config"

var shortNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Export collects every namespaced cache entry into one indented JSON
// document stamped with now.
func Export(c *cache.Cache, now time.Time) ([]byte, error) {
	doc := make(map[string]json.RawMessage)
	for _, key := range c.Keys(cache.Namespace) {
		raw, ok := c.Raw(key)
		if !ok {
			continue
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("failed to export %s: stored value is not JSON", key)
		}
		doc[strings.TrimPrefix(key, cache.Namespace)] = raw
	}

	stamp, err := json.Marshal(now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to encode export time: %w", err)
	}
	doc[ExportedAtKey] = stamp

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}
	return data, nil
}

// Import writes every collection of a document produced by Export back
// into the cache. The whole document is checked before anything is
// written: on a malformed document Import returns false and the cache is
// left untouched. Null members are skipped.
func Import(c *cache.Cache, data []byte) (bool, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to parse backup: %w", err)
	}
	if doc == nil {
		return false, fmt.Errorf("failed to parse backup: not a JSON object")
	}

	writes := make(map[string]json.RawMessage, len(doc))
	for name, raw := range doc {
		if name == ExportedAtKey || string(raw) == "null" {
			continue
		}
		if !shortNameRe.MatchString(name) {
			return false, fmt.Errorf("failed to parse backup: invalid collection name %q", name)
		}
		if err := checkShape(name, raw); err != nil {
			return false, fmt.Errorf("failed to parse backup: %w", err)
		}
		writes[cache.Namespace+name] = raw
	}

	for key, raw := range writes {
		c.SetRaw(key, raw)
	}
	return true, nil
}

// checkShape requires config to be an object and every other member to be
// an array of record objects.
func checkShape(name string, raw json.RawMessage) error {
	v := gjson.ParseBytes(raw)
	if name == ConfigKey {
		if !v.IsObject() {
			return fmt.Errorf("%s must be an object", name)
		}
		return nil
	}
	if !v.IsArray() {
		return fmt.Errorf("%s must be an array", name)
	}
	var err error
	i := 0
	v.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			err = fmt.Errorf("%s[%d] must be an object", name, i)
			return false
		}
		i++
		return true
	})
	return err
}

// Names lists the collections present in a document, without writing
// anything.
func Names(data []byte) ([]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse backup: %w", err)
	}
	var names []string
	for name := range doc {
		if name != ExportedAtKey {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}
