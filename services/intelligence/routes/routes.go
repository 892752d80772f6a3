// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/analyze"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/handlers"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/jobs"
)

func SetupRoutes(router *gin.Engine, store cache.Store, registry *jobs.Registry,
	runner *jobs.Runner, analyzer *analyze.Analyzer, directory handlers.DrugDirectory,
	version string) {

	router.GET("/health", handlers.HandleHealth(version))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("", handlers.HandleSubmitAnalysis(runner))
			analysis.GET("/:id/status", handlers.HandleAnalysisStatus(registry))
			analysis.GET("/:id/stream", handlers.HandleAnalysisStream(registry))
		}

		v1.POST("/interactions", handlers.HandleInteractions(analyzer))
		v1.POST("/health-profile", handlers.HandleHealthProfile(analyzer))

		// Drug directory routes
		drugs := v1.Group("/drugs")
		{
			drugs.GET("", handlers.HandleDrugSearch(directory))
			drugs.GET("/:name/info", handlers.HandleDrugInfo(directory))
			drugs.POST("/compare", handlers.HandleDrugCompare(directory))
		}

		// Cache administration routes
		cacheAdmin := v1.Group("/cache")
		{
			cacheAdmin.GET("/entry/:category/:identifier", handlers.HandleCacheEntry(store))
			cacheAdmin.DELETE("/entry/:category/:identifier", handlers.HandleCacheDelete(store))
			cacheAdmin.GET("/keys", handlers.HandleCacheKeys(store))
			cacheAdmin.GET("/stats", handlers.HandleCacheStats(store))
			cacheAdmin.GET("/health", handlers.HandleCacheHealth(store))
		}
	}
}
