// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MedInsightAI/MedInsightHub/pkg/validation"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/sources"
)

// maxCompareMedications bounds one comparison request.
const maxCompareMedications = 5

// DrugDirectory bundles the store and upstream lookups behind the drug
// directory endpoints.
type DrugDirectory struct {
	Store  cache.Store
	Fetch  sources.FDAFetch
	Search sources.DrugSearchFetch
}

// lookupInfo reads medication info cache-aside: a hit serves the cached
// entry, a miss fetches from the upstream and seeds the cache.
func (d DrugDirectory) lookupInfo(c *gin.Context, name string) (*datatypes.FDAInfo, bool, bool) {
	ctx := c.Request.Context()
	key := cache.NewKey(cache.CategoryMedicationInfo, name)

	var cached datatypes.FDAInfo
	if d.Store.Read(ctx, key, &cached).Found() {
		return &cached, true, true
	}

	info, err := d.Fetch(ctx, name)
	if err != nil {
		return nil, false, false
	}
	d.Store.Write(ctx, key, info)
	return info, false, true
}

// HandleDrugInfo serves label information for one medication.
func HandleDrugInfo(directory DrugDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, err := validation.SanitizeSubject(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		info, cached, ok := directory.lookupInfo(c, name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no information found for " + name})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": name, "info": info, "cached": cached})
	}
}

// CompareRequest asks for a side-by-side of 2 to 5 medications.
type CompareRequest struct {
	Medications []string `json:"medications" binding:"required"`
}

// HandleDrugCompare serves label information for several medications at
// once. Medications with no upstream data are listed in missing rather
// than failing the comparison.
func HandleDrugCompare(directory DrugDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CompareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: medications is required"})
			return
		}

		meds := validation.NormalizeMedications(req.Medications)
		if len(meds) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "comparison requires at least 2 distinct medications"})
			return
		}
		if len(meds) > maxCompareMedications {
			c.JSON(http.StatusBadRequest, gin.H{"error": "comparison supports at most 5 medications"})
			return
		}

		infos := make(map[string]*datatypes.FDAInfo, len(meds))
		var missing []string
		for _, med := range meds {
			info, _, ok := directory.lookupInfo(c, med)
			if !ok {
				missing = append(missing, med)
				continue
			}
			infos[med] = info
		}
		c.JSON(http.StatusOK, gin.H{"medications": infos, "missing": missing})
	}
}

// HandleDrugSearch serves directory matches for a partial drug name.
func HandleDrugSearch(directory DrugDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		query, err := validation.SanitizeSubject(c.Query("q"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required: " + err.Error()})
			return
		}

		matches, err := directory.Search(c.Request.Context(), query)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "drug search upstream unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"query": query, "results": matches})
	}
}
