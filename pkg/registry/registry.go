// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// New builds a registry ordered by task type. Duplicate task types are rejected.
func New(version string, now time.Time, activities ...Activity) (*ActivityRegistry, error) {
	sorted := append([]Activity(nil), activities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TaskType < sorted[j].TaskType })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].TaskType == sorted[i-1].TaskType {
			return nil, fmt.Errorf("duplicate task type %q", sorted[i].TaskType)
		}
	}
	return &ActivityRegistry{
		Version:     version,
		LastUpdated: now.UTC().Format(time.RFC3339),
		Activities:  sorted,
	}, nil
}

func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

func (r *ActivityRegistry) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// MustSchema decodes a JSON Schema literal for InputSchema.
func MustSchema(schemaJSON string) map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(schemaJSON), &out); err != nil {
		panic(fmt.Sprintf("registry: invalid schema: %v", err))
	}
	return out
}
