package predict

import (
	"path"
	"strings"
)

const (
	IntentTesting              = "testing"
	IntentDataModeling         = "data_modeling"
	IntentBusinessLogic        = "business_logic"
	IntentUIDevelopment        = "ui_development"
	IntentComponentDevelopment = "component_development"
	IntentCodeNavigation       = "code_navigation"
	IntentUnknown              = "unknown"

	IntentFeatureImplementation = "feature_implementation"
	IntentDebugging             = "debugging"
)

type intentRule struct {
	keywords   []string
	intent     string
	confidence float64
	indicator  string
}

// First match on the lowercased file stem wins.
var intentRules = []intentRule{
	{[]string{"test"}, IntentTesting, 0.8, "File name indicates testing activity"},
	{[]string{"model"}, IntentDataModeling, 0.7, "File name indicates data model work"},
	{[]string{"service"}, IntentBusinessLogic, 0.75, "File name indicates service layer development"},
	{[]string{"screen", "page"}, IntentUIDevelopment, 0.8, "File name indicates UI screen development"},
	{[]string{"widget", "component"}, IntentComponentDevelopment, 0.75, "File name indicates widget/component work"},
}

type functionRule struct {
	keywords []string
	intent   string
	verb     string
}

var functionRules = []functionRule{
	{[]string{"test", "spec", "should"}, IntentTesting, "testing"},
	{[]string{"build", "create", "init"}, IntentFeatureImplementation, "implementation work"},
	{[]string{"fix", "resolve", "debug"}, IntentDebugging, "debugging"},
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// architecture maps a role to the roles usually touched next, per language.
type archRule struct {
	role string
	next []string
}

var architectureRules = map[string][]archRule{
	".dart": {
		{"model", []string{"service", "repository", "screen"}},
		{"service", []string{"screen", "widget", "test"}},
		{"screen", []string{"widget", "test"}},
		{"widget", []string{"test"}},
		{"repository", []string{"service", "test"}},
	},
	".py": {
		{"model", []string{"service", "api", "test"}},
		{"service", []string{"api", "test"}},
		{"api", []string{"test"}},
		{"util", []string{"service", "api", "test"}},
	},
}

type sibling struct {
	name     func(stem string) string
	strength float64
}

func suffixed(s string) func(string) string { return func(stem string) string { return stem + s } }

var siblingRules = map[string][]sibling{
	".dart": {
		{suffixed("_screen.dart"), 0.6},
		{suffixed("_widget.dart"), 0.5},
		{suffixed("_service.dart"), 0.8},
		{suffixed("_repository.dart"), 0.7},
		{suffixed("_test.dart"), 0.9},
		{func(stem string) string { return "test/" + stem + "_test.dart" }, 0.9},
	},
	".py": {
		{func(stem string) string { return "test_" + stem + ".py" }, 0.9},
		{suffixed("_test.py"), 0.9},
		{suffixed("_api.py"), 0.7},
		{suffixed("_service.py"), 0.8},
	},
}

// testCandidates are repository-relative test locations for a file stem.
func testCandidates(stem string) []string {
	return []string{
		"test/" + stem + "_test.dart",
		stem + "_test.dart",
		"test_" + stem + ".py",
		stem + "_test.py",
		"tests/test_" + stem + ".py",
		"__tests__/" + stem + ".test.js",
		"spec/" + stem + "_spec.rb",
	}
}

var criticalKeywords = []string{"service", "api", "auth", "payment", "security"}

const (
	mitigationTests       = "Consider writing comprehensive tests before making changes"
	mitigationHistory     = "Review recent commit history to understand change patterns"
	mitigationCoordinate  = "Coordinate with other developers who work on this file"
	mitigationCriticalMsg = "Extra caution: This appears to be a critical system file"
)

var languageRecommendations = map[string][]string{
	".dart": {
		"Consider running 'flutter analyze' to check for issues",
		"Ensure widget tests are updated if UI changes are made",
		"Check if this change affects the app's state management",
	},
	".py": {
		"Run unit tests to ensure no regressions",
		"Check if API documentation needs updating",
		"Consider impact on downstream services",
	},
}

var functionRecommendations = []struct {
	keywords []string
	text     string
}{
	{[]string{"test"}, "Ensure test coverage is comprehensive and up-to-date"},
	{[]string{"api", "service"}, "Check if API contracts or service interfaces need updating"},
	{[]string{"ui", "screen"}, "Consider accessibility and responsive design implications"},
}

var generalRecommendations = []string{
	"Review the commit history to understand recent changes",
	"Check for related files that might need updates",
	"Ensure proper error handling and logging",
}

const maxRecommendations = 5

func recommendations(filePath, function string) []string {
	out := append([]string{}, languageRecommendations[path.Ext(filePath)]...)
	if fn := strings.ToLower(function); fn != "" {
		for _, r := range functionRecommendations {
			if containsAny(fn, r.keywords) {
				out = append(out, r.text)
				break
			}
		}
	}
	out = append(out, generalRecommendations...)
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
