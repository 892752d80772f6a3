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
	clinicalTrialsURL = "https://clinicaltrials.gov/api/v2/studies"

	// trialsMaxStudies caps how many studies one pass processes.
	trialsMaxStudies = 20
)

// ctStudiesResponse mirrors the slice of the ClinicalTrials.gov v2
// payload we consume.
type ctStudiesResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				OverallStatus string `json:"overallStatus"`
			} `json:"statusModule"`
			DesignModule struct {
				Phases         []string `json:"phases"`
				EnrollmentInfo struct {
					Count int `json:"count"`
				} `json:"enrollmentInfo"`
			} `json:"designModule"`
			ConditionsModule struct {
				Conditions []string `json:"conditions"`
			} `json:"conditionsModule"`
			SponsorCollaboratorsModule struct {
				LeadSponsor struct {
					Name string `json:"name"`
				} `json:"leadSponsor"`
			} `json:"sponsorCollaboratorsModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

// NewTrialsFetch builds the ClinicalTrials.gov study fetcher.
func NewTrialsFetch(timeout time.Duration) TrialsFetch {
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, subject string) ([]datatypes.ClinicalTrial, error) {
		q := url.Values{}
		q.Set("query.term", subject)
		q.Set("pageSize", fmt.Sprint(trialsMaxStudies))

		body, err := getJSON(ctx, client, clinicalTrialsURL+"?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("clinicaltrials query: %w", err)
		}

		var parsed ctStudiesResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode clinicaltrials response: %w", err)
		}

		trials := make([]datatypes.ClinicalTrial, 0, len(parsed.Studies))
		for _, s := range parsed.Studies {
			p := s.ProtocolSection
			trial := datatypes.ClinicalTrial{
				NCTID:      p.IdentificationModule.NCTID,
				Title:      p.IdentificationModule.BriefTitle,
				Status:     p.StatusModule.OverallStatus,
				Phase:      strings.Join(p.DesignModule.Phases, "/"),
				Enrollment: p.DesignModule.EnrollmentInfo.Count,
				Sponsor:    p.SponsorCollaboratorsModule.LeadSponsor.Name,
			}
			if len(p.ConditionsModule.Conditions) > 0 {
				trial.Condition = p.ConditionsModule.Conditions[0]
			}
			trials = append(trials, trial)
			if len(trials) >= trialsMaxStudies {
				break
			}
		}
		return trials, nil
	}
}
