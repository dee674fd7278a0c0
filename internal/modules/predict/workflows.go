package predict

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

const workflowRulesEnv = "WORKFLOW_RULES_YAML"

//go:embed workflows.yaml
var workflowFS embed.FS

// Workflow is a named multi-step role sequence, e.g. model -> service -> test.
type Workflow struct {
	Name        string   `yaml:"name" json:"name"`
	Roles       []string `yaml:"roles" json:"roles"`
	Extensions  []string `yaml:"extensions" json:"extensions"`
	Description string   `yaml:"description" json:"description"`
}

type workflowSpec struct {
	Version   int        `yaml:"version"`
	Workflows []Workflow `yaml:"workflows"`
}

// used when the YAML is missing or invalid
var fallbackWorkflows = []Workflow{
	{Name: "model_change_workflow", Roles: []string{"model", "service", "controller", "test"}, Extensions: []string{".dart", ".py", ".ts"}, Description: "Data model change typically requires service and UI updates"},
	{Name: "api_integration_workflow", Roles: []string{"api_client", "service", "model", "screen"}, Extensions: []string{".dart", ".py"}, Description: "API changes propagate through service layer to UI"},
	{Name: "ui_component_workflow", Roles: []string{"widget", "screen", "service", "test"}, Extensions: []string{".dart"}, Description: "UI changes often require service updates and tests"},
	{Name: "database_change_workflow", Roles: []string{"migration", "model", "repository", "service"}, Extensions: []string{".py", ".sql"}, Description: "Database changes require model and service layer updates"},
}

// LoadWorkflows reads the workflow table from WORKFLOW_RULES_YAML, or the
// embedded default. An unreadable or invalid table falls back to the
// compiled-in one.
func LoadWorkflows(log *logger.Logger) []Workflow {
	wfs, err := loadWorkflows()
	if err != nil {
		if log != nil {
			log.Warn("predict: workflow rules load failed; using fallback", "error", err)
		}
		return slices.Clone(fallbackWorkflows)
	}
	return wfs
}

func loadWorkflows() ([]Workflow, error) {
	data, err := readWorkflowSpec()
	if err != nil {
		return nil, err
	}
	return ParseWorkflows(data)
}

func readWorkflowSpec() ([]byte, error) {
	if p := strings.TrimSpace(os.Getenv(workflowRulesEnv)); p != "" {
		return os.ReadFile(p)
	}
	return workflowFS.ReadFile("workflows.yaml")
}

func ParseWorkflows(data []byte) ([]Workflow, error) {
	var spec workflowSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if len(spec.Workflows) == 0 {
		return nil, errors.New("no workflows defined")
	}
	seen := map[string]bool{}
	out := make([]Workflow, 0, len(spec.Workflows))
	for _, wf := range spec.Workflows {
		wf.Name = strings.TrimSpace(wf.Name)
		if wf.Name == "" {
			return nil, errors.New("workflow name is required")
		}
		if seen[wf.Name] {
			return nil, fmt.Errorf("duplicate workflow name: %s", wf.Name)
		}
		seen[wf.Name] = true
		if len(wf.Roles) < 2 {
			return nil, fmt.Errorf("workflow %s: at least two roles required", wf.Name)
		}
		for i, r := range wf.Roles {
			wf.Roles[i] = strings.ToLower(strings.TrimSpace(r))
		}
		for i, ext := range wf.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			wf.Extensions[i] = ext
		}
		out = append(out, wf)
	}
	return out, nil
}

func (w Workflow) appliesTo(ext string) bool {
	return slices.Contains(w.Extensions, strings.ToLower(ext))
}

// roleOf returns the index of the first role named in stem, or -1.
func (w Workflow) roleOf(stem string) int {
	stem = strings.ToLower(stem)
	for i, r := range w.Roles {
		if strings.Contains(stem, r) {
			return i
		}
	}
	return -1
}

// matches reports whether seq names at least two distinct roles of w, in
// non-decreasing role order. Consecutive repeats of one file count once.
func (w Workflow) matches(seq []string) bool {
	var (
		idx  []int
		prev string
	)
	for _, p := range seq {
		if p == prev {
			continue
		}
		prev = p
		if i := w.roleOf(fileStem(p)); i >= 0 {
			idx = append(idx, i)
		}
	}
	return len(idx) >= 2 && slices.IsSorted(idx) && idx[0] < idx[len(idx)-1]
}

func fileStem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
