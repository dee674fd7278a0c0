package query

// Explanation describes how a query would be processed without running it.
type Explanation struct {
	OriginalQuery       string            `json:"original_query"`
	DetectedType        Intent            `json:"detected_type"`
	ExtractedParameters map[string]string `json:"extracted_parameters"`
	MatchedPattern      string            `json:"matched_pattern,omitempty"`
	GraphQueryAvailable bool              `json:"graph_query_available"`
	ProcessingStrategy  []string          `json:"processing_strategy"`
	ExampleGraphQuery   string            `json:"example_graph_query,omitempty"`
}

// Cypher equivalents of the in-memory traversals, runnable against the
// Neo4j mirror.
var exampleCypher = map[Intent]string{
	IntentDeveloperWork: `MATCH (d:Developer {key: $developer})-[:AUTHORED]->(c:Commit)-[:MODIFIES]->(f:File)
WHERE toLower(c.message) CONTAINS $keyword OR toLower(f.path) CONTAINS $keyword
RETURN c, collect(DISTINCT f) AS files ORDER BY c.timestamp DESC`,
	IntentFileHistory: `MATCH (d:Developer)-[:AUTHORED]->(c:Commit)-[:MODIFIES]->(f:File {key: $file_path})
RETURN c, d ORDER BY c.timestamp DESC`,
	IntentFeatureContributors: `MATCH (d:Developer)-[:AUTHORED]->(c:Commit)
WHERE toLower(c.message) CONTAINS $feature
RETURN d, collect(c) AS commits ORDER BY d.name`,
	IntentCommitDetails: `MATCH (c:Commit) WHERE c.key STARTS WITH $commit
OPTIONAL MATCH (d:Developer)-[:AUTHORED]->(c)
OPTIONAL MATCH (c)-[:MODIFIES]->(f:File)
OPTIONAL MATCH (c)-[:IMPLEMENTS]->(ft:Feature)
RETURN c, d, collect(DISTINCT f) AS files, collect(DISTINCT ft) AS features`,
	IntentRecentWork: `MATCH (d:Developer)-[:AUTHORED]->(c:Commit)
RETURN c, d ORDER BY c.timestamp DESC LIMIT 10`,
}

func (r *Router) Explain(q string) Explanation {
	cls := Classify(q)
	graphAvailable := cls.Intent != IntentGeneral
	strategy := []string{}
	if graphAvailable {
		strategy = append(strategy, "graph traversal: "+string(cls.Intent))
	}
	strategy = append(strategy, "vector similarity search")
	if graphAvailable {
		strategy = append(strategy, "intent-specific merge of graph and vector results")
	}
	return Explanation{
		OriginalQuery:       q,
		DetectedType:        cls.Intent,
		ExtractedParameters: cls.Params,
		MatchedPattern:      cls.Pattern,
		GraphQueryAvailable: graphAvailable,
		ProcessingStrategy:  strategy,
		ExampleGraphQuery:   exampleCypher[cls.Intent],
	}
}
