// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

const openFDALabelURL = "https://api.fda.gov/drug/label.json"

// fdaLabelResponse mirrors the slice of the openFDA label payload we use.
type fdaLabelResponse struct {
	Results []struct {
		IndicationsAndUsage []string `json:"indications_and_usage"`
		Warnings            []string `json:"warnings"`
		OpenFDA             struct {
			BrandName    []string `json:"brand_name"`
			GenericName  []string `json:"generic_name"`
			Manufacturer []string `json:"manufacturer_name"`
			Route        []string `json:"route"`
		} `json:"openfda"`
	} `json:"results"`
}

// NewFDAFetch builds the openFDA label fetcher.
func NewFDAFetch(timeout time.Duration) FDAFetch {
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, subject string) (*datatypes.FDAInfo, error) {
		search := fmt.Sprintf(`openfda.brand_name:%q openfda.generic_name:%q`, subject, subject)
		q := url.Values{}
		q.Set("search", search)
		q.Set("limit", "1")

		body, err := getJSON(ctx, client, openFDALabelURL+"?"+q.Encode())
		if err != nil {
			return nil, err
		}

		var parsed fdaLabelResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode openFDA response: %w", err)
		}
		if len(parsed.Results) == 0 {
			return nil, fmt.Errorf("no openFDA label for %q", subject)
		}

		r := parsed.Results[0]
		info := &datatypes.FDAInfo{
			Indications: r.IndicationsAndUsage,
			Warnings:    r.Warnings,
			Route:       r.OpenFDA.Route,
		}
		if len(r.OpenFDA.BrandName) > 0 {
			info.BrandName = r.OpenFDA.BrandName[0]
		}
		if len(r.OpenFDA.GenericName) > 0 {
			info.GenericName = r.OpenFDA.GenericName[0]
		}
		if len(r.OpenFDA.Manufacturer) > 0 {
			info.Manufacturer = r.OpenFDA.Manufacturer[0]
		}
		return info, nil
	}
}

// DrugSearchFetch looks up directory matches for a partial drug name.
type DrugSearchFetch func(ctx context.Context, query string) ([]datatypes.DrugMatch, error)

const drugSearchMaxResults = 10

// NewDrugSearch builds the openFDA-backed drug name search.
func NewDrugSearch(timeout time.Duration) DrugSearchFetch {
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, query string) ([]datatypes.DrugMatch, error) {
		search := fmt.Sprintf(`openfda.brand_name:%s* openfda.generic_name:%s*`, query, query)
		q := url.Values{}
		q.Set("search", search)
		q.Set("limit", fmt.Sprint(drugSearchMaxResults))

		body, err := getJSON(ctx, client, openFDALabelURL+"?"+q.Encode())
		if err != nil {
			return nil, err
		}

		var parsed fdaLabelResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode openFDA response: %w", err)
		}

		seen := make(map[string]struct{}, len(parsed.Results))
		matches := make([]datatypes.DrugMatch, 0, len(parsed.Results))
		for _, r := range parsed.Results {
			var m datatypes.DrugMatch
			if len(r.OpenFDA.BrandName) > 0 {
				m.BrandName = r.OpenFDA.BrandName[0]
			}
			if len(r.OpenFDA.GenericName) > 0 {
				m.GenericName = r.OpenFDA.GenericName[0]
			}
			if len(r.OpenFDA.Manufacturer) > 0 {
				m.Manufacturer = r.OpenFDA.Manufacturer[0]
			}
			if m.BrandName == "" && m.GenericName == "" {
				continue
			}
			dedupe := m.BrandName + "|" + m.GenericName
			if _, dup := seen[dedupe]; dup {
				continue
			}
			seen[dedupe] = struct{}{}
			matches = append(matches, m)
		}
		return matches, nil
	}
}
