package formatting

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PrettyJSON renders v as indented JSON, falling back to fmt.Sprintf when it
// cannot be marshaled.
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// PrettyYAML formats any value as YAML, falling back to fmt.Sprintf on
// marshaling errors.
func PrettyYAML(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
