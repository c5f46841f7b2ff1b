package service

// ============================================================================
// Shared Helper Functions
// ============================================================================

// uniqueStrings drops empty and duplicate values, keeping first-seen order
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// chunkStrings splits values into batches of at most size elements.
// The batches share the backing array of values.
func chunkStrings(values []string, size int) [][]string {
	if size <= 0 || len(values) == 0 {
		if len(values) == 0 {
			return nil
		}
		return [][]string{values}
	}
	chunks := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		chunks = append(chunks, values[start:end:end])
	}
	return chunks
}
