// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// ActionSummary is the catalog listing shape: the static facts a client
// needs to render an action without the full scaling trees.
type ActionSummary struct {
	Key               string         `json:"key"`
	Name              string         `json:"name"`
	Category          craft.Category `json:"category"`
	QiCost            float64        `json:"qi_cost"`
	StabilityCost     float64        `json:"stability_cost"`
	ToxicityCost      float64        `json:"toxicity_cost,omitempty"`
	SuccessChance     float64        `json:"success_chance"`
	RequiresCondition string         `json:"requires_condition,omitempty"`
	Cooldown          int            `json:"cooldown,omitempty"`
	IsItem            bool           `json:"is_item,omitempty"`
}

// Summarize flattens a catalog action for listing. The condition gate
// is reported as its canonical tier, not the host's flavor spelling.
func Summarize(a *craft.Action) ActionSummary {
	s := ActionSummary{
		Key:           a.Key,
		Name:          a.DisplayName(),
		Category:      a.Category,
		QiCost:        a.QiCost,
		StabilityCost: a.StabilityCost,
		ToxicityCost:  a.ToxicityCost,
		SuccessChance: a.EffectiveSuccessChance(),
		Cooldown:      a.Cooldown,
		IsItem:        a.IsItem,
	}
	if a.RequiresCondition != "" {
		s.RequiresCondition = string(craft.NormalizeCondition(a.RequiresCondition))
	}
	return s
}

// ListActions serves the server-configured action catalog. Servers
// started without a recipe return 404; clients then have to ship full
// snapshots with every request, which still works.
func ListActions(catalog []*craft.Action, cfg *craft.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(catalog) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no catalog configured"})
			return
		}

		summaries := make([]ActionSummary, len(catalog))
		for i, a := range catalog {
			summaries[i] = Summarize(a)
		}

		c.JSON(http.StatusOK, gin.H{
			"actions": summaries,
			"count":   len(summaries),
			"config":  cfg,
		})
	}
}
