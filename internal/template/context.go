package template

// MergeData merges multiple data maps into one. Later maps override values
// from earlier maps, so scenario variables win over suite defaults.
func MergeData(layers ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, layer := range layers {
		for key, value := range layer {
			result[key] = value
		}
	}

	return result
}
