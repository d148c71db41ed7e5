// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"strconv"

	"github.com/AleutianAI/castnet/pkg/ux"
	"github.com/AleutianAI/castnet/services/castnet/pipeline"
)

func printReports(p *ux.Printer, reports []*pipeline.Report) {
	for _, r := range reports {
		if r != nil {
			printReport(p, r)
		}
	}
}

func printReport(p *ux.Printer, r *pipeline.Report) {
	switch r.Status {
	case pipeline.StatusNoInput:
		p.Warning(string(r.Stage) + ": no input records, nothing written")
		return
	case pipeline.StatusQueryNotFound:
		p.Warning(string(r.Stage) + ": actor " + r.Query + " not found, nothing written")
		return
	}

	switch r.Stage {
	case pipeline.StageCentrality:
		p.Summary("Co-occurrence graph",
			ux.Field{Label: "Records", Value: r.Records},
			ux.Field{Label: "Nodes", Value: r.Nodes},
			ux.Field{Label: "Edges", Value: r.Edges},
			ux.Field{Label: "Components", Value: r.Components},
			ux.Field{Label: "Retained nodes", Value: r.RetainedNodes},
			ux.Field{Label: "Pivots", Value: r.Pivots},
			ux.Field{Label: "Exact", Value: r.Exact},
		)
		if r.Truncated {
			p.Warning("graph truncated by capacity limits; raise graph.max_nodes or graph.max_edges")
		}
		if r.FullGraphFallback {
			p.Warning("component discovery failed; centrality covers the whole graph")
		}
		if len(r.Top) > 0 {
			p.Title("Top actors by " + r.TopBy.String())
			rows := make([][]string, len(r.Top))
			for i, rec := range r.Top {
				rows[i] = []string{
					strconv.Itoa(i + 1),
					rec.ActorID,
					rec.ActorName,
					strconv.FormatFloat(rec.DegreeCentrality, 'f', 4, 64),
					strconv.FormatFloat(rec.BetweennessCentrality, 'f', 4, 64),
					strconv.Itoa(rec.Degree),
				}
			}
			p.Table([]string{"rank", "actor_id", "actor_name", "degree_centrality", "betweenness_centrality", "degree"}, rows)
		}

	case pipeline.StageSimilarity:
		p.Title("Actors most similar to " + r.Query + " (" + r.Metric.String() + ")")
		rows := make([][]string, len(r.Neighbors))
		for i, n := range r.Neighbors {
			rows[i] = []string{n.ActorID, n.ActorName, strconv.FormatFloat(n.Distance, 'f', 4, 64)}
		}
		p.Table([]string{"actor_id", "name", r.Metric.String()}, rows)
	}

	for _, loc := range r.Locations {
		p.Success(string(r.Stage) + ": wrote " + loc)
	}
}
