// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides the namespaced, TTL-governed key-value layer for
// the intelligence service.
//
// All cache access goes through the Store interface. Keys are built only
// via the Key type so every entry lands in the shared namespace with a
// policy-known category, and every write resolves its TTL from the policy
// table rather than ad hoc durations at call sites.
//
// The layer is fail-open: a Redis outage degrades reads to misses and
// writes to no-ops. Business logic never sees a cache error.
package cache

import (
	"fmt"
	"strings"
)

// Namespace is the shared key prefix for every entry the service writes.
// Keeping a single namespace lets operators scan, count, and clear the
// service's footprint without touching co-tenant data.
const Namespace = "medinsight"

// Category partitions the namespace by data kind. Each category carries
// its own TTL in the policy table; writes against a category missing from
// the table are refused.
type Category string

const (
	CategorySessionState     Category = "session_state"
	CategoryAnalysisProgress Category = "analysis_progress"
	CategoryAnalysisResults  Category = "analysis_results"
	CategoryAISummary        Category = "ai_summary"
	CategoryHealthAnalysis   Category = "health_analysis"
	CategoryInteractions     Category = "medication_interactions"
	CategoryMedicationInfo   Category = "medication_info"
	CategoryFDAValidation    Category = "fda_validation"
	CategoryUsage            Category = "usage"
	CategoryErrors           Category = "errors"
)

// Key addresses one cache entry. Identifier must already be normalized
// (see pkg/validation); the store never rewrites identifiers.
type Key struct {
	Category   Category
	Identifier string
	// SubKey optionally narrows the entry, e.g. a session's progress
	// record versus its state record.
	SubKey string
}

// NewKey builds a key for a category and identifier.
func NewKey(category Category, identifier string) Key {
	return Key{Category: category, Identifier: identifier}
}

// WithSub returns a copy of the key narrowed by a sub key.
func (k Key) WithSub(sub string) Key {
	k.SubKey = sub
	return k
}

// String renders the full wire key: namespace:category:identifier[:subKey].
func (k Key) String() string {
	if k.SubKey == "" {
		return fmt.Sprintf("%s:%s:%s", Namespace, k.Category, k.Identifier)
	}
	return fmt.Sprintf("%s:%s:%s:%s", Namespace, k.Category, k.Identifier, k.SubKey)
}

// Valid reports whether the key can be written: known category and a
// non-empty identifier free of the separator character.
func (k Key) Valid() bool {
	if _, ok := ttlPolicy[k.Category]; !ok {
		return false
	}
	if k.Identifier == "" || strings.ContainsRune(k.Identifier, ':') {
		return false
	}
	return !strings.ContainsRune(k.SubKey, ':')
}

// CategoryPattern returns the wildcard pattern covering every entry of a
// category, for scans and bulk deletes.
func CategoryPattern(category Category) string {
	return fmt.Sprintf("%s:%s:*", Namespace, category)
}

// NamespacePattern returns the wildcard covering the whole namespace.
func NamespacePattern() string {
	return Namespace + ":*"
}
