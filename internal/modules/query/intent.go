package query

import (
	"regexp"
	"strings"
)

type Intent string

const (
	IntentDeveloperWork       Intent = "developer_work"
	IntentFileHistory         Intent = "file_history"
	IntentFeatureContributors Intent = "feature_contributors"
	IntentCommitDetails       Intent = "commit_details"
	IntentRecentWork          Intent = "recent_work"
	IntentGeneral             Intent = "general"
)

// Parameter names extracted from a query.
const (
	ParamDeveloper = "developer"
	ParamKeyword   = "keyword"
	ParamFilePath  = "file_path"
	ParamFeature   = "feature"
	ParamCommit    = "commit"
	ParamScope     = "scope"
)

type matcher struct {
	re     *regexp.Regexp
	params []string
}

type rule struct {
	intent   Intent
	matchers []matcher
	// accept rejects a match whose parameters are not usable; the next
	// matcher is tried instead.
	accept func(params map[string]string) bool
}

// tail captures the last meaningful word of the query. A trailing generic
// noun ("feature", "module") and punctuation are skipped.
const tail = `(?:.*?(\w+))?(?:\s+(?:feature|features|module|code|work))?\W*$`

func m(pattern string, params ...string) matcher {
	return matcher{re: regexp.MustCompile(`(?i)` + pattern), params: params}
}

// rules are evaluated in this order; the first accepted match wins.
var rules = []rule{
	{
		intent: IntentDeveloperWork,
		matchers: []matcher{
			m(`what has (\w+) worked on`+tail, ParamDeveloper, ParamKeyword),
			m(`show me (\w+)'s work`+tail, ParamDeveloper, ParamKeyword),
			m(`(\w+) (?:has )?contributed`+tail, ParamDeveloper, ParamKeyword),
			m(`(\w+) (?:has )?implemented`+tail, ParamDeveloper, ParamKeyword),
		},
		accept: func(p map[string]string) bool { return !questionWords[p[ParamDeveloper]] },
	},
	{
		intent: IntentFileHistory,
		matchers: []matcher{
			m(`who.*?last.*?changed.*?([^\s]+\.[^\s]+)`, ParamFilePath),
			m(`history.*?([^\s]+\.[^\s]+)`, ParamFilePath),
			m(`who.*?modified.*?([^\s]+\.[^\s]+)`, ParamFilePath),
			m(`changes.*?([^\s]+\.[^\s]+)`, ParamFilePath),
		},
	},
	{
		intent: IntentFeatureContributors,
		matchers: []matcher{
			m(`who.*?worked`+tail, ParamFeature),
			m(`contributors`+tail, ParamFeature),
			m(`(?:who|which\s+\w+).*?(?:implemented|contributed)`+tail, ParamFeature),
			m(`team`+tail, ParamFeature),
		},
		accept: func(p map[string]string) bool { return p[ParamFeature] != "" },
	},
	{
		intent: IntentCommitDetails,
		matchers: []matcher{
			m(`show.*?commit\s+#?(\w+)\b`, ParamCommit),
			m(`details.*?commit\s+#?(\w+)\b`, ParamCommit),
			m(`changes.*?commit\s+#?(\w+)\b`, ParamCommit),
		},
		accept: func(p map[string]string) bool { return !commitNouns[p[ParamCommit]] },
	},
	{
		intent: IntentRecentWork,
		matchers: []matcher{
			m(`recent\w*\s+work`+tail, ParamScope),
			m(`latest`+tail, ParamScope),
			m(`what (?:has|have|did|is|was) (\w+)\b.*?\brecently`, ParamScope),
			m(`what\b.*?\brecently`),
		},
	},
}

var questionWords = map[string]bool{
	"who": true, "what": true, "which": true, "how": true, "i": true, "we": true,
	"they": true, "anyone": true, "someone": true, "everyone": true, "has": true,
	"developer": true, "developers": true, "engineer": true, "person": true, "somebody": true,
}

// commitNouns follow "commit" without naming one ("show commit history").
var commitNouns = map[string]bool{
	"history": true, "log": true, "logs": true, "message": true, "messages": true,
	"by": true, "for": true, "from": true, "of": true, "the": true,
}

// fillerWords never make a useful keyword, feature or scope.
var fillerWords = map[string]bool{
	"recently": true, "lately": true, "related": true, "to": true, "the": true, "a": true,
	"an": true, "on": true, "for": true, "in": true, "with": true, "anything": true,
	"stuff": true, "feature": true, "features": true, "module": true, "work": true,
	"code": true, "it": true, "this": true, "that": true, "project": true,
}

// Classification is the outcome of matching a query against the rules.
type Classification struct {
	Intent  Intent            `json:"intent"`
	Params  map[string]string `json:"params"`
	Pattern string            `json:"pattern,omitempty"`
}

// Classify maps a free-text query onto an intent. Intents are tried in the
// fixed order of rules; within an intent, matchers are tried in order.
func Classify(query string) Classification {
	q := strings.TrimSpace(query)
	for _, r := range rules {
		for _, mt := range r.matchers {
			groups := mt.re.FindStringSubmatch(q)
			if groups == nil {
				continue
			}
			params := make(map[string]string, len(mt.params))
			for i, name := range mt.params {
				if i+1 < len(groups) {
					params[name] = normalizeParam(name, groups[i+1])
				}
			}
			if r.accept != nil && !r.accept(params) {
				continue
			}
			return Classification{Intent: r.intent, Params: params, Pattern: mt.re.String()}
		}
	}
	return Classification{Intent: IntentGeneral, Params: map[string]string{}}
}

func normalizeParam(name, v string) string {
	v = strings.TrimSpace(v)
	switch name {
	case ParamFilePath:
		// Paths keep their case; only trailing sentence punctuation is dropped.
		return strings.TrimRight(v, "?!,;:'\")")
	case ParamKeyword, ParamFeature, ParamScope:
		v = strings.ToLower(v)
		if fillerWords[v] || (name == ParamScope && questionWords[v]) {
			return ""
		}
		return v
	default:
		return strings.ToLower(v)
	}
}
