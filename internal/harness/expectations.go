package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// checkExpectation verifies a step outcome against its expectation. A nil
// expectation means the step simply must not error. When ErrorContains is
// set the step is expected to fail. The returned error describes the first
// unmet check.
func checkExpectation(expected *Expectation, response interface{}, stepErr error) error {
	if expected == nil {
		return stepErr
	}

	if len(expected.ErrorContains) > 0 {
		if stepErr == nil {
			return fmt.Errorf("expected an error containing %q but the step succeeded",
				strings.Join(expected.ErrorContains, ", "))
		}
		errText := stepErr.Error()
		for _, fragment := range expected.ErrorContains {
			if !containsFold(errText, fragment) {
				return fmt.Errorf("error %q does not contain expected text %q", errText, fragment)
			}
		}
		return nil
	}

	if stepErr != nil {
		return stepErr
	}

	if expected.Status > 0 {
		status, ok := responseStatus(response)
		if !ok {
			return fmt.Errorf("expected status %d but the step produced no HTTP response", expected.Status)
		}
		if status != expected.Status {
			return fmt.Errorf("expected status %d, got %d", expected.Status, status)
		}
	}

	if len(expected.Contains) > 0 || len(expected.NotContains) > 0 {
		text := responseText(response)
		for _, fragment := range expected.Contains {
			if !containsFold(text, fragment) {
				return fmt.Errorf("response does not contain expected text %q", fragment)
			}
		}
		for _, fragment := range expected.NotContains {
			if containsFold(text, fragment) {
				return fmt.Errorf("response contains unexpected text %q", fragment)
			}
		}
	}

	for path, want := range expected.JSONPath {
		got, found := lookupPath(responseBody(response), path)
		if !found {
			return fmt.Errorf("json path %q not found in response body", path)
		}
		if !valuesEqual(got, want) {
			return fmt.Errorf("json path %q: expected %v, got %v", path, want, got)
		}
	}

	return nil
}

// responseStatus extracts the HTTP status from a registered API response.
func responseStatus(response interface{}) (int, bool) {
	data, ok := response.(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch status := data["status"].(type) {
	case int:
		return status, true
	case float64:
		return int(status), true
	default:
		return 0, false
	}
}

// responseBody extracts the parsed body from a registered API response. For
// non-API responses the whole response is searched.
func responseBody(response interface{}) interface{} {
	if data, ok := response.(map[string]interface{}); ok {
		if body, ok := data["body"]; ok {
			return body
		}
	}
	return response
}

// responseText renders a response for substring checks.
func responseText(response interface{}) string {
	if response == nil {
		return ""
	}
	if text, ok := response.(string); ok {
		return text
	}
	if encoded, err := json.Marshal(response); err == nil {
		return string(encoded)
	}
	return fmt.Sprintf("%v", response)
}

// lookupPath walks a dotted path ("user.address.city") through nested maps.
func lookupPath(data interface{}, path string) (interface{}, bool) {
	current := data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// valuesEqual compares a response value against an expected value from YAML.
// JSON decoding yields float64 for all numbers while YAML yields int, so
// numeric values compare by magnitude.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if actualNum, ok := toFloat(actual); ok {
		if expectedNum, ok := toFloat(expected); ok {
			return actualNum == expectedNum
		}
		return false
	}

	switch want := expected.(type) {
	case string:
		got, ok := actual.(string)
		return ok && got == want
	case bool:
		got, ok := actual.(bool)
		return ok && got == want
	}

	actualVal := reflect.ValueOf(actual)
	expectedVal := reflect.ValueOf(expected)

	if actualVal.Kind() == reflect.Slice && expectedVal.Kind() == reflect.Slice {
		if actualVal.Len() != expectedVal.Len() {
			return false
		}
		for i := 0; i < actualVal.Len(); i++ {
			if !valuesEqual(actualVal.Index(i).Interface(), expectedVal.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	if actualVal.Kind() == reflect.Map && expectedVal.Kind() == reflect.Map {
		if actualVal.Len() != expectedVal.Len() {
			return false
		}
		for _, key := range expectedVal.MapKeys() {
			got := actualVal.MapIndex(key)
			if !got.IsValid() {
				return false
			}
			if !valuesEqual(got.Interface(), expectedVal.MapIndex(key).Interface()) {
				return false
			}
		}
		return true
	}

	return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

// containsFold is a case-insensitive substring check.
func containsFold(text, fragment string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(fragment))
}
