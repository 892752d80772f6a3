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
	"strings"
	"time"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

const (
	pubmedSearchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedSummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"

	// pubmedMaxArticles caps the detail fetch; the search itself may
	// match thousands of papers.
	pubmedMaxArticles = 10
)

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDocSummary struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"pubdate"`
}

// NewPubMedFetch builds the PubMed E-utilities fetcher: esearch for IDs,
// then one esummary call for the capped ID list.
func NewPubMedFetch(timeout time.Duration) PubMedFetch {
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, subject string) ([]datatypes.PubMedArticle, error) {
		q := url.Values{}
		q.Set("db", "pubmed")
		q.Set("term", subject)
		q.Set("retmode", "json")
		q.Set("retmax", fmt.Sprint(pubmedMaxArticles))
		q.Set("sort", "relevance")

		body, err := getJSON(ctx, client, pubmedSearchURL+"?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("pubmed search: %w", err)
		}

		var search pubmedSearchResponse
		if err := json.Unmarshal(body, &search); err != nil {
			return nil, fmt.Errorf("decode pubmed search: %w", err)
		}
		ids := search.ESearchResult.IDList
		if len(ids) == 0 {
			return nil, nil
		}
		if len(ids) > pubmedMaxArticles {
			ids = ids[:pubmedMaxArticles]
		}

		sq := url.Values{}
		sq.Set("db", "pubmed")
		sq.Set("id", strings.Join(ids, ","))
		sq.Set("retmode", "json")

		body, err = getJSON(ctx, client, pubmedSummaryURL+"?"+sq.Encode())
		if err != nil {
			return nil, fmt.Errorf("pubmed summary: %w", err)
		}

		var summary pubmedSummaryResponse
		if err := json.Unmarshal(body, &summary); err != nil {
			return nil, fmt.Errorf("decode pubmed summary: %w", err)
		}

		articles := make([]datatypes.PubMedArticle, 0, len(ids))
		for _, id := range ids {
			raw, ok := summary.Result[id]
			if !ok {
				continue
			}
			var doc pubmedDocSummary
			if err := json.Unmarshal(raw, &doc); err != nil {
				continue
			}
			articles = append(articles, datatypes.PubMedArticle{
				PMID:    doc.UID,
				Title:   doc.Title,
				Journal: doc.Source,
				PubDate: doc.PubDate,
			})
		}
		return articles, nil
	}
}
