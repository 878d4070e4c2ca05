package tracker

import (
	"strings"
	"time"
)

// searchResponse is the top-level container for issue search results.
type searchResponse struct {
	Total  int        `json:"total"`
	Issues []issueDTO `json:"issues"`
}

// issueDTO represents a single issue in the search response.
type issueDTO struct {
	Key    string    `json:"key"`
	Fields fieldsDTO `json:"fields"`
}

type fieldsDTO struct {
	Summary string `json:"summary"`
	Status  struct {
		Name string `json:"name"`
	} `json:"status"`
	Health  string `json:"health,omitempty"`
	Created string `json:"created"`
	Updated string `json:"updated"`
}

// changelogDTO contains historical change entries. Depending on the API
// version and endpoint, the tracker returns the entries under either a
// "histories" or a "values" key for the same concept. Both are accepted here
// and nowhere else.
type changelogDTO struct {
	Total      int          `json:"total"`
	IsLast     bool         `json:"isLast"`
	Histories  []historyDTO `json:"histories"`
	Values     []historyDTO `json:"values"`
	StartAt    int          `json:"startAt"`
	MaxResults int          `json:"maxResults"`
}

// entries returns whichever list the payload actually carried.
func (c *changelogDTO) entries() []historyDTO {
	if len(c.Histories) > 0 {
		return c.Histories
	}
	return c.Values
}

// historyDTO is a single entry in the changelog.
type historyDTO struct {
	Created string `json:"created"`
	Author  struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Items []itemDTO `json:"items"`
}

// itemDTO is a single field change within a history entry.
type itemDTO struct {
	Field      string `json:"field"`
	FieldID    string `json:"fieldId,omitempty"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// timeLayouts lists the timestamp formats the tracker is known to emit.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
	time.RFC3339,
}

// ParseTime parses a tracker timestamp, trying the known layouts in order.
func ParseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// mapHistory converts a wire history entry into a canonical ChangeRecord.
// The health field is recognized by name or provider field ID so the engine
// never branches on source-specific naming.
func mapHistory(h historyDTO, healthField string) (ChangeRecord, error) {
	ts, err := ParseTime(h.Created)
	if err != nil {
		return ChangeRecord{}, err
	}

	rec := ChangeRecord{
		Timestamp: ts,
		Author:    h.Author.DisplayName,
	}
	for _, item := range h.Items {
		field := item.Field
		if strings.EqualFold(item.Field, healthField) || strings.EqualFold(item.FieldID, healthField) {
			field = "health"
		} else if strings.EqualFold(item.Field, "status") {
			field = "status"
		}
		rec.Changes = append(rec.Changes, FieldChange{
			Field: field,
			From:  item.FromString,
			To:    item.ToString,
		})
	}
	return rec, nil
}

func mapIssue(dto issueDTO) Issue {
	issue := Issue{
		Key:     dto.Key,
		Summary: dto.Fields.Summary,
		Status:  dto.Fields.Status.Name,
		Health:  dto.Fields.Health,
	}
	if t, err := ParseTime(dto.Fields.Created); err == nil {
		issue.Created = t
	}
	if t, err := ParseTime(dto.Fields.Updated); err == nil {
		issue.Updated = t
	}
	return issue
}
