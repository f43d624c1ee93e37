// export_test.go exports private functions for white-box testing.
package logger

var (
	CollectErrorEntries = collectErrorEntries
	FormatErrorEntries  = formatErrorEntries
)

// EntryMessages returns the messages of collected entries.
func EntryMessages(entries []errorEntry) []string {
	if entries == nil {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.message
	}
	return out
}

// EntryMetadata returns the metadata of collected entries.
func EntryMetadata(entries []errorEntry) []map[string]any {
	if entries == nil {
		return nil
	}
	out := make([]map[string]any, len(entries))
	for i, e := range entries {
		out[i] = e.metadata
	}
	return out
}
