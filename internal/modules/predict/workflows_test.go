package predict

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedWorkflowsMatchFallback(t *testing.T) {
	t.Setenv(workflowRulesEnv, "")
	wfs, err := loadWorkflows()
	if err != nil {
		t.Fatalf("loadWorkflows: %v", err)
	}
	if len(wfs) != len(fallbackWorkflows) {
		t.Fatalf("count: want=%d got=%d", len(fallbackWorkflows), len(wfs))
	}
	for i := range wfs {
		if wfs[i].Name != fallbackWorkflows[i].Name || len(wfs[i].Roles) != len(fallbackWorkflows[i].Roles) {
			t.Fatalf("workflow %d: want=%+v got=%+v", i, fallbackWorkflows[i], wfs[i])
		}
	}
}

func TestWorkflowOverrideFromEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wf.yaml")
	body := "workflows:\n  - name: docs_flow\n    roles: [Readme, Guide]\n    extensions: [md]\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(workflowRulesEnv, p)
	wfs := LoadWorkflows(nil)
	if len(wfs) != 1 || wfs[0].Name != "docs_flow" {
		t.Fatalf("override: got=%+v", wfs)
	}
	if wfs[0].Roles[0] != "readme" || wfs[0].Extensions[0] != ".md" {
		t.Fatalf("normalization: got=%+v", wfs[0])
	}
}

func TestWorkflowLoadFallsBack(t *testing.T) {
	t.Setenv(workflowRulesEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if got := LoadWorkflows(nil); len(got) != len(fallbackWorkflows) {
		t.Fatalf("fallback: want=%d got=%d", len(fallbackWorkflows), len(got))
	}
}

func TestParseWorkflowsRejects(t *testing.T) {
	cases := map[string]string{
		"empty":     "workflows: []\n",
		"no name":   "workflows:\n  - roles: [a, b]\n",
		"one role":  "workflows:\n  - name: x\n    roles: [a]\n",
		"duplicate": "workflows:\n  - name: x\n    roles: [a, b]\n  - name: x\n    roles: [c, d]\n",
		"not yaml":  "workflows: [\n",
	}
	for name, body := range cases {
		if _, err := ParseWorkflows([]byte(body)); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
}

func TestWorkflowMatches(t *testing.T) {
	wf := fallbackWorkflows[0]
	if !wf.matches([]string{"a/user_model.dart", "b/user_service.dart"}) {
		t.Fatalf("ordered roles should match")
	}
	if wf.matches([]string{"b/user_service.dart", "a/user_model.dart"}) {
		t.Fatalf("reversed roles should not match")
	}
	if wf.matches([]string{"a/user_model.dart"}) {
		t.Fatalf("single file should not match")
	}
	if wf.matches([]string{"README.txt", "a/user_model.dart", "a/user_model.dart"}) {
		t.Fatalf("repeated file should not match")
	}
	if wf.matches([]string{"a/user_model.dart", "b/order_model.dart"}) {
		t.Fatalf("one role across two files should not match")
	}
}
