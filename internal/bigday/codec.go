package bigday

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteEvents writes events as an indented JSON array, the interchange format
// between the events stage and the fetch/extract stages.
func WriteEvents(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

// ReadEvents reads an event JSON array.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}
