// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// FDAInfo is the label and regulatory slice extracted from openFDA.
type FDAInfo struct {
	BrandName    string   `json:"brand_name,omitempty"`
	GenericName  string   `json:"generic_name,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Indications  []string `json:"indications,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Route        []string `json:"route,omitempty"`
}

// DrugMatch is one directory hit from a drug name search.
type DrugMatch struct {
	BrandName    string `json:"brand_name,omitempty"`
	GenericName  string `json:"generic_name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// PubMedArticle is one literature hit from the PubMed E-utilities.
type PubMedArticle struct {
	PMID     string `json:"pmid"`
	Title    string `json:"title"`
	Journal  string `json:"journal,omitempty"`
	PubDate  string `json:"pub_date,omitempty"`
	Abstract string `json:"abstract,omitempty"`
}

// ClinicalTrial is one study summary from ClinicalTrials.gov.
type ClinicalTrial struct {
	NCTID      string `json:"nct_id"`
	Title      string `json:"title"`
	Phase      string `json:"phase,omitempty"`
	Status     string `json:"status,omitempty"`
	Condition  string `json:"condition,omitempty"`
	Enrollment int    `json:"enrollment,omitempty"`
	Sponsor    string `json:"sponsor,omitempty"`
}

// MarketData is the commercial intelligence slot.
type MarketData struct {
	MarketSize   string   `json:"market_size,omitempty"`
	GrowthRate   string   `json:"growth_rate,omitempty"`
	KeySegments  []string `json:"key_segments,omitempty"`
	PricingNotes string   `json:"pricing_notes,omitempty"`
	PatentNotes  string   `json:"patent_notes,omitempty"`
}

// CompetitorProfile is one entry in the competitive landscape slot.
type CompetitorProfile struct {
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	MarketShare string `json:"market_share,omitempty"`
	Positioning string `json:"positioning,omitempty"`
}

// Source slot names as they appear in degraded-source lists and metrics.
const (
	SourceFDA            = "fda"
	SourcePubMed         = "pubmed"
	SourceClinicalTrials = "clinical_trials"
	SourceMarket         = "market"
	SourceCompetitors    = "competitors"
)

// AggregatedSources is the fixed five-slot aggregate produced by one
// gathering pass. A slot whose source failed holds its zero value and is
// listed in Failed; the aggregate itself is always usable.
type AggregatedSources struct {
	FDA            *FDAInfo            `json:"fda,omitempty"`
	PubMed         []PubMedArticle     `json:"pubmed,omitempty"`
	ClinicalTrials []ClinicalTrial     `json:"clinical_trials,omitempty"`
	Market         *MarketData         `json:"market,omitempty"`
	Competitors    []CompetitorProfile `json:"competitors,omitempty"`

	// Failed lists the slot names that produced no data this pass.
	Failed []string `json:"failed,omitempty"`
}
