package ada

import "encoding/json"

// EventType identifies the kind of streaming event.
type EventType string

const (
	// EventStatus carries a human-readable progress line.
	EventStatus EventType = "status"
	// EventSearch is emitted when a query starts (empty sources) and again
	// when it completes (populated sources).
	EventSearch EventType = "search"
	// EventTextPreview carries an early snippet of the first scraped content.
	EventTextPreview EventType = "text_preview"
	// EventContent carries one chunk of the generated answer. Concatenating
	// all content chunks in order reconstructs the full answer.
	EventContent EventType = "content"
	// EventDone is the terminal success event with the full search history.
	EventDone EventType = "done"
	// EventError is the terminal failure event.
	EventError EventType = "error"
)

// Search event statuses.
const (
	SearchStatusSearching = "searching"
	SearchStatusComplete  = "complete"
)

// Event is a typed event emitted while a request is processed.
// Consumers receive these on the channel passed to Engine.Run and are
// expected to flush each one to the client before the engine resumes.
type Event struct {
	Type EventType `json:"type"`

	// status fields
	Message string `json:"message,omitempty"`
	Step    int    `json:"step,omitempty"`
	Icon    string `json:"icon,omitempty"`
	CanSkip bool   `json:"canSkip,omitempty"`

	// search fields
	Query      string         `json:"query,omitempty"`
	Sources    []SourceRecord `json:"sources,omitempty"`
	Iteration  int            `json:"iteration,omitempty"`
	QueryIndex int            `json:"queryIndex,omitempty"`
	Status     string         `json:"status,omitempty"`

	// text_preview field
	Text string `json:"text,omitempty"`

	// content field
	Data string `json:"data,omitempty"`

	// done fields
	SearchHistory []SearchEntry `json:"searchHistory,omitempty"`
	RawSearchData string        `json:"rawSearchData,omitempty"`
}

// MarshalJSON emits only the fields defined for the event's variant. Status
// events always carry step (including step 0) and search events always carry
// a sources array (empty, not absent, on the start event), so the wire shape
// is stable for clients regardless of zero values.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventStatus:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
			Step    int       `json:"step"`
			Icon    string    `json:"icon"`
			CanSkip bool      `json:"canSkip"`
		}{e.Type, e.Message, e.Step, e.Icon, e.CanSkip})
	case EventSearch:
		sources := e.Sources
		if sources == nil {
			sources = []SourceRecord{}
		}
		return json.Marshal(struct {
			Type       EventType      `json:"type"`
			Query      string         `json:"query"`
			Sources    []SourceRecord `json:"sources"`
			Iteration  int            `json:"iteration"`
			QueryIndex int            `json:"queryIndex"`
			Status     string         `json:"status"`
		}{e.Type, e.Query, sources, e.Iteration, e.QueryIndex, e.Status})
	case EventTextPreview:
		return json.Marshal(struct {
			Type      EventType `json:"type"`
			Text      string    `json:"text"`
			Iteration int       `json:"iteration"`
		}{e.Type, e.Text, e.Iteration})
	case EventContent:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Data string    `json:"data"`
		}{e.Type, e.Data})
	case EventDone:
		history := e.SearchHistory
		if history == nil {
			history = []SearchEntry{}
		}
		return json.Marshal(struct {
			Type          EventType     `json:"type"`
			SearchHistory []SearchEntry `json:"searchHistory"`
			RawSearchData string        `json:"rawSearchData"`
		}{e.Type, history, e.RawSearchData})
	case EventError:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	}

	type plain Event
	return json.Marshal(plain(e))
}

func statusEvent(message string, step int, icon string, canSkip bool) Event {
	return Event{Type: EventStatus, Message: message, Step: step, Icon: icon, CanSkip: canSkip}
}

func searchEvent(query string, sources []SourceRecord, iteration, queryIndex int, status string) Event {
	return Event{
		Type:       EventSearch,
		Query:      query,
		Sources:    sources,
		Iteration:  iteration,
		QueryIndex: queryIndex,
		Status:     status,
	}
}

func previewEvent(text string, iteration int) Event {
	return Event{Type: EventTextPreview, Text: text, Iteration: iteration}
}

func contentEvent(chunk string) Event {
	return Event{Type: EventContent, Data: chunk}
}

func doneEvent(history []SearchEntry, rawSearchData string) Event {
	return Event{Type: EventDone, SearchHistory: history, RawSearchData: rawSearchData}
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
