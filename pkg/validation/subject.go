// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// cache keys, external API queries, or log lines. Using these validators
// prevents injection attacks (key injection, query injection) and keeps
// cache identifiers stable across differently formatted spellings of the
// same subject.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// subjectPattern matches valid analysis subjects after normalization.
// Allows: lowercase letters, digits, underscores, dots, hyphens.
// Max length: 128 characters (covers the longest marketed drug names).
var subjectPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._\-]{0,127}$`)

// whitespaceRun collapses any run of whitespace to a single separator.
var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeSubject converts a user-supplied subject (drug name, medication,
// topic) into its canonical cache-identifier form: trimmed, lowercased,
// whitespace runs replaced with a single underscore.
//
// Two spellings that differ only in case or spacing normalize to the same
// identifier, so "Aspirin", "aspirin " and "ASPIRIN" share one cache entry.
//
// Example:
//
//	id := validation.NormalizeSubject("  Ozempic  1mg ")
//	// id == "ozempic_1mg"
func NormalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	return whitespaceRun.ReplaceAllString(s, "_")
}

// ValidateSubject validates a normalized subject identifier.
//
// Valid subjects:
//   - 1-128 characters
//   - Lowercase letters a-z and digits 0-9
//   - Underscores from whitespace normalization
//   - Dots and hyphens as they appear in drug names (e.g. co-codamol)
//
// Returns an error if the subject is invalid.
func ValidateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("subject cannot be empty")
	}

	if !subjectPattern.MatchString(subject) {
		return fmt.Errorf("invalid subject format: %q (must be 1-128 lowercase alphanumeric chars, underscores, dots, or hyphens)", subject)
	}

	return nil
}

// SanitizeSubject normalizes and validates a subject in one step.
// Returns the canonical identifier if valid, or an error if invalid.
//
// Use this at every boundary that accepts a user-supplied subject:
//
//	id, err := validation.SanitizeSubject(req.Subject)
//	if err != nil {
//	    return fmt.Errorf("invalid subject: %w", err)
//	}
//	// Safe to use as a cache identifier or query term
func SanitizeSubject(subject string) (string, error) {
	normalized := NormalizeSubject(subject)
	if err := ValidateSubject(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// NormalizeMedications normalizes a medication list into its canonical,
// order-independent form: each name normalized, duplicates removed, then
// sorted. Two requests listing the same medications in any order produce
// the same slice.
func NormalizeMedications(medications []string) []string {
	seen := make(map[string]struct{}, len(medications))
	out := make([]string, 0, len(medications))
	for _, m := range medications {
		n := NormalizeSubject(m)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
