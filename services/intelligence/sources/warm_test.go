// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

func TestWarmMedicationInfo(t *testing.T) {
	store := cache.NewMemoryStore()
	fetch := FDAFetch(func(_ context.Context, subject string) (*datatypes.FDAInfo, error) {
		if subject == "metformin" {
			return nil, errors.New("upstream down")
		}
		return &datatypes.FDAInfo{GenericName: subject}, nil
	})

	warmed := WarmMedicationInfo(context.Background(), store, fetch, []string{
		"Aspirin", "  Metformin ", "ibuprofen",
	})
	if warmed != 2 {
		t.Fatalf("warmed = %d, want 2 (failing medication skipped)", warmed)
	}

	var info datatypes.FDAInfo
	if !store.Read(context.Background(), cache.NewKey(cache.CategoryMedicationInfo, "aspirin"), &info).Found() {
		t.Error("aspirin not warmed under its normalized identifier")
	}
	if info.GenericName != "aspirin" {
		t.Errorf("warmed payload = %+v, want normalized subject", info)
	}
	if store.Read(context.Background(), cache.NewKey(cache.CategoryMedicationInfo, "metformin"), &info).Found() {
		t.Error("failed fetch must not seed an entry")
	}
}

func TestWarmMedicationInfoSkipsInvalidNames(t *testing.T) {
	store := cache.NewMemoryStore()
	calls := 0
	fetch := FDAFetch(func(context.Context, string) (*datatypes.FDAInfo, error) {
		calls++
		return &datatypes.FDAInfo{}, nil
	})

	warmed := WarmMedicationInfo(context.Background(), store, fetch, []string{"", "a;drop"})
	if warmed != 0 {
		t.Errorf("warmed = %d, want 0", warmed)
	}
	if calls != 0 {
		t.Errorf("fetch ran %d times for invalid names, want 0", calls)
	}
}

func TestWarmMedicationInfoNilCollaborators(t *testing.T) {
	if got := WarmMedicationInfo(context.Background(), nil, nil, []string{"aspirin"}); got != 0 {
		t.Errorf("warmed = %d, want 0", got)
	}
}
