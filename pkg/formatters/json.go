package formatters

import (
	"encoding/json"

	"github.com/wayneeseguin/logevents/pkg/types"
)

// JSONFormatter formats events as line-delimited JSON objects
type JSONFormatter struct {
	Options       FormatOptions
	ExcludeFields []string // Optional: fields to exclude
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		Options: DefaultFormatOptions(),
	}
}

// Format formats an event as JSON
func (f *JSONFormatter) Format(e *types.Event) ([]byte, error) {
	entry := f.Entry(e)
	for _, field := range f.ExcludeFields {
		delete(entry, field)
	}

	data, err := f.safeMarshal(entry)
	if err != nil {
		return nil, err
	}

	// Add newline for line-delimited JSON
	data = append(data, '\n')
	return data, nil
}

// Entry returns the JSON object for an event before marshaling. Processors
// use it to embed events in larger payloads.
func (f *JSONFormatter) Entry(e *types.Event) map[string]interface{} {
	entry := make(map[string]interface{})

	if f.Options.IncludeTime {
		entry["time"] = f.Options.formatTimestamp(e.Time)
	}
	if f.Options.IncludeLevel {
		entry["level"] = f.Options.formatLevel(e.Level)
	}
	entry["logger"] = e.Logger
	entry["message"] = e.Message()
	entry["template"] = e.Template

	if len(e.Args) > 0 {
		entry["args"] = safeValue(e.Args)
	}
	if e.Marker != "" {
		entry["marker"] = e.Marker
	}
	if f.Options.IncludeThread && e.Thread != "" {
		entry["thread"] = e.Thread
	}
	if f.Options.IncludeHost {
		if e.Host != "" {
			entry["host"] = e.Host
		} else {
			entry["host"] = getHostname()
		}
	}
	if e.Err != nil {
		entry["error"] = errorEntry(e.Err, f.Options)
	}
	return entry
}

func errorEntry(err error, opts FormatOptions) map[string]interface{} {
	causes := Causes(err)
	chain := make([]map[string]string, 0, len(causes))
	for _, cause := range causes {
		chain = append(chain, map[string]string{
			"type":    typeName(cause),
			"message": ownMessage(cause),
		})
	}
	entry := map[string]interface{}{
		"message": err.Error(),
		"causes":  chain,
	}
	if opts.IncludeStack {
		if st := StackTrace(err); st != nil {
			entry["stack"] = opts.Stack.Lines(st)
		}
	}
	return entry
}

// safeMarshal marshals data to JSON, falling back to a depth-limited copy
// when the args contain values encoding/json cannot handle.
func (f *JSONFormatter) safeMarshal(data map[string]interface{}) ([]byte, error) {
	result, err := json.Marshal(data)
	if err != nil {
		if args, ok := data["args"]; ok {
			data["args"] = stringify(args)
		}
		return json.Marshal(data)
	}
	return result, nil
}
