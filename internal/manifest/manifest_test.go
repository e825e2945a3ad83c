package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
)

const testTemplate = `
metadata:
  name: {{build_id}}
  job: {{job_id}}
  pipeline: {{pipeline_id}}
command:
- "/opt/screwdriver/launch {{git_org}} {{git_repo}} {{git_branch}} {{job_name}}"
`

func testValues() Values {
	return Values{
		BuildID:    "80754af91bfb6d1073585b046fe0a474ce868509",
		JobID:      "2eda8ad1632af052b0c74d6fcab6058b3a79cf25",
		PipelineID: "aaa83eac6890a9a6e2273ea51d6f2f2915b1a019",
		GitOrg:     "screwdriver-cd",
		GitRepo:    "hashr",
		GitBranch:  "addSD",
		JobName:    "main",
	}
}

func TestRender(t *testing.T) {
	m, err := Render(testTemplate, testValues())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := Manifest{
		"metadata": map[string]any{
			"name":     "80754af91bfb6d1073585b046fe0a474ce868509",
			"job":      "2eda8ad1632af052b0c74d6fcab6058b3a79cf25",
			"pipeline": "aaa83eac6890a9a6e2273ea51d6f2f2915b1a019",
		},
		"command": []any{"/opt/screwdriver/launch screwdriver-cd hashr addSD main"},
	}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("Render() = %#v, want %#v", m, want)
	}
	if got := m.Metadata("name"); got != "80754af91bfb6d1073585b046fe0a474ce868509" {
		t.Errorf("Metadata(name) = %q", got)
	}
}

func TestRender_UnknownPlaceholderKept(t *testing.T) {
	m, err := Render("command:\n- \"run {{job_name}} {{unknown}}\"\n", Values{JobName: "main"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	cmd := m["command"].([]any)
	if cmd[0] != "run main {{unknown}}" {
		t.Errorf("command = %q, want unknown placeholder left as-is", cmd[0])
	}
}

func TestRender_ParseError(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"invalid yaml", "metadata: [unclosed\n"},
		{"not a mapping", "- a\n- b\n"},
		{"empty document", ""},
		{"non-string nested key", "metadata:\n  labels:\n    1: one\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.template, testValues())
			if !errors.Is(err, domain.ErrTemplateParse) {
				t.Errorf("Render() error = %v, want ErrTemplateParse", err)
			}
		})
	}
}

func TestDefaultTemplate(t *testing.T) {
	r, err := Load("", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	m, err := r.Render(testValues())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if m.Metadata("name") != testValues()[BuildID] {
		t.Errorf("metadata.name = %q", m.Metadata("name"))
	}
	if m.Metadata("pipeline") != testValues()[PipelineID] {
		t.Errorf("metadata.pipeline = %q", m.Metadata("pipeline"))
	}
	cmd, ok := m["command"].([]any)
	if !ok || len(cmd) != 1 || cmd[0] != "/opt/screwdriver/launch screwdriver-cd hashr addSD main" {
		t.Errorf("command = %#v", m["command"])
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml.tim")
	if err := os.WriteFile(path, []byte(testTemplate), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	m, err := r.Render(testValues())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if _, ok := m["apiVersion"]; ok {
		t.Error("expected file template, got embedded default")
	}

	missing := filepath.Join(dir, "missing.tim")
	if _, err := Load(missing, false); err == nil {
		t.Error("expected error for missing template without fallback")
	}
	r, err = Load(missing, true)
	if err != nil {
		t.Fatalf("Load() with fallback error = %v", err)
	}
	if r.template != defaultTemplate {
		t.Error("expected embedded default template on fallback")
	}
}
