package history

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rewindhq/rewind/pkg/replaylib"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// recordFile is the on-disk import format. A bare list of records is also
// accepted.
type recordFile struct {
	Events []replaylib.Record `json:"events" yaml:"events"`
}

// LoadRecords reads records from a JSON or YAML file, chosen by extension.
func LoadRecords(fs afero.Fs, path string) ([]replaylib.Record, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error: cannot read %s: %w", path, err)
	}
	var (
		file recordFile
		list []replaylib.Record
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil || file.Events == nil {
			if lerr := yaml.Unmarshal(data, &list); lerr != nil {
				return nil, fmt.Errorf("error: cannot parse %s: %w", path, firstErr(err, lerr))
			}
			return list, nil
		}
	default:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("error: cannot parse %s: %w", path, err)
			}
			return list, nil
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("error: cannot parse %s: %w", path, err)
		}
	}
	return file.Events, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
