package history

import (
	"testing"

	"github.com/spf13/afero"
)

func TestLoadRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/list.json":   `[{"epochMs":1,"target":"/a","label":"A"},{"epochMs":2,"target":"/b","label":"B","action":"click"}]`,
		"/object.json": `{"events":[{"epochMs":1,"target":"/a","label":"A"},{"epochMs":2,"target":"/b","label":"B"}]}`,
		"/list.yaml":   "- epoch_ms: 1\n  target: /a\n  label: A\n- epoch_ms: 2\n  target: /b\n  label: B\n",
		"/object.yml":  "events:\n  - epoch_ms: 1\n    target: /a\n    label: A\n  - epoch_ms: 2\n    target: /b\n    label: B\n    action: click\n",
	}
	for name, body := range files {
		if err := afero.WriteFile(fs, name, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for name := range files {
		t.Run(name, func(t *testing.T) {
			rs, err := LoadRecords(fs, name)
			if err != nil {
				t.Fatalf("LoadRecords: %v", err)
			}
			if len(rs) != 2 || rs[0].EpochMs != 1 || rs[1].Target != "/b" {
				t.Errorf("unexpected records %+v", rs)
			}
		})
	}
}

func TestLoadRecords_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := LoadRecords(fs, "/missing.json"); err == nil {
		t.Error("expected error for missing file")
	}
	_ = afero.WriteFile(fs, "/bad.json", []byte("{"), 0o644)
	if _, err := LoadRecords(fs, "/bad.json"); err == nil {
		t.Error("expected parse error")
	}
	_ = afero.WriteFile(fs, "/bad.yaml", []byte("events: 3\n"), 0o644)
	if _, err := LoadRecords(fs, "/bad.yaml"); err == nil {
		t.Error("expected parse error")
	}
}
