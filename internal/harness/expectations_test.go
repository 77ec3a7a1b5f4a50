package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiResponse(status int, body interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status": status,
		"body":   body,
		"ok":     status >= 200 && status < 300,
	}
}

func TestCheckExpectationNilMeansMustSucceed(t *testing.T) {
	assert.NoError(t, checkExpectation(nil, nil, nil))

	stepErr := errors.New("element not found")
	assert.Equal(t, stepErr, checkExpectation(nil, nil, stepErr))
}

func TestCheckExpectationStatusMatch(t *testing.T) {
	expected := &Expectation{Status: 200}

	assert.NoError(t, checkExpectation(expected, apiResponse(200, nil), nil))

	err := checkExpectation(expected, apiResponse(404, nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected status 200, got 404")
}

func TestCheckExpectationStatusNeedsHTTPResponse(t *testing.T) {
	err := checkExpectation(&Expectation{Status: 200}, map[string]interface{}{"text": "hi"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no HTTP response")
}

func TestCheckExpectationStatusAcceptsFloat(t *testing.T) {
	// A suite result decoded from a JSON report carries float64 statuses.
	response := map[string]interface{}{"status": float64(201)}
	assert.NoError(t, checkExpectation(&Expectation{Status: 201}, response, nil))
}

func TestCheckExpectationContains(t *testing.T) {
	response := apiResponse(200, map[string]interface{}{"message": "Welcome, Admin"})

	assert.NoError(t, checkExpectation(&Expectation{Contains: []string{"welcome"}}, response, nil))

	err := checkExpectation(&Expectation{Contains: []string{"goodbye"}}, response, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `does not contain expected text "goodbye"`)
}

func TestCheckExpectationNotContains(t *testing.T) {
	response := apiResponse(200, map[string]interface{}{"error": "quota exceeded"})

	err := checkExpectation(&Expectation{NotContains: []string{"quota"}}, response, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected text")

	assert.NoError(t, checkExpectation(&Expectation{NotContains: []string{"panic"}}, response, nil))
}

func TestCheckExpectationJSONPath(t *testing.T) {
	response := apiResponse(200, map[string]interface{}{
		"user": map[string]interface{}{
			"name": "admin",
			"id":   float64(7),
		},
		"active": true,
	})

	expected := &Expectation{JSONPath: map[string]interface{}{
		"user.name": "admin",
		"user.id":   7,
		"active":    true,
	}}
	assert.NoError(t, checkExpectation(expected, response, nil))
}

func TestCheckExpectationJSONPathMismatch(t *testing.T) {
	response := apiResponse(200, map[string]interface{}{"count": float64(3)})

	err := checkExpectation(&Expectation{JSONPath: map[string]interface{}{"count": 4}}, response, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `json path "count"`)
}

func TestCheckExpectationJSONPathMissing(t *testing.T) {
	response := apiResponse(200, map[string]interface{}{"user": map[string]interface{}{}})

	err := checkExpectation(&Expectation{JSONPath: map[string]interface{}{"user.name": "x"}}, response, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCheckExpectationErrorContains(t *testing.T) {
	expected := &Expectation{ErrorContains: []string{"not found", "submit"}}

	stepErr := errors.New(`element not found: selector "#submit" matched nothing`)
	assert.NoError(t, checkExpectation(expected, nil, stepErr))
}

func TestCheckExpectationErrorContainsButStepSucceeded(t *testing.T) {
	err := checkExpectation(&Expectation{ErrorContains: []string{"boom"}}, apiResponse(200, nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "but the step succeeded")
}

func TestCheckExpectationErrorContainsWrongText(t *testing.T) {
	err := checkExpectation(&Expectation{ErrorContains: []string{"timeout"}}, nil, errors.New("connection refused"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `does not contain expected text "timeout"`)
}

func TestCheckExpectationUnexpectedErrorPassesThrough(t *testing.T) {
	stepErr := errors.New("dial tcp: connection refused")
	err := checkExpectation(&Expectation{Status: 200}, nil, stepErr)
	assert.Equal(t, stepErr, err)
}

func TestValuesEqualNumericCrossType(t *testing.T) {
	assert.True(t, valuesEqual(float64(7), 7))
	assert.True(t, valuesEqual(int64(7), float64(7)))
	assert.False(t, valuesEqual(float64(7), 8))
	assert.False(t, valuesEqual(float64(7), "7"))
}

func TestValuesEqualCollections(t *testing.T) {
	assert.True(t, valuesEqual(
		[]interface{}{"a", float64(1)},
		[]interface{}{"a", 1},
	))
	assert.False(t, valuesEqual(
		[]interface{}{"a"},
		[]interface{}{"a", "b"},
	))
	assert.True(t, valuesEqual(
		map[string]interface{}{"n": float64(2)},
		map[string]interface{}{"n": 2},
	))
}

func TestLookupPathWalksNestedMaps(t *testing.T) {
	data := map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{"c": "deep"},
		},
	}

	value, found := lookupPath(data, "a.b.c")
	require.True(t, found)
	assert.Equal(t, "deep", value)

	_, found = lookupPath(data, "a.x.c")
	assert.False(t, found)
}
