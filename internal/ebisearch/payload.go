package ebisearch

import (
	"bytes"
	"encoding/json"
	"strings"
)

type domainsPayload struct {
	Domains *[]domainDescriptor `json:"domains"`
}

type domainDescriptor struct {
	ID   identifier `json:"id"`
	Name string     `json:"name"`
}

type entriesPayload struct {
	Entries *[]entryPayload `json:"entries"`
}

type entryPayload struct {
	ID         identifier         `json:"id"`
	Source     identifier         `json:"source"`
	References []referencePayload `json:"references"`
}

type referencePayload struct {
	ID     identifier `json:"id"`
	Source identifier `json:"source"`
}

// identifier accepts JSON strings and numbers; EBI Search is not consistent about id types.
type identifier string

func (value *identifier) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*value = ""
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*value = identifier(strings.TrimSpace(text))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*value = identifier(number.String())
	return nil
}

func (value identifier) String() string {
	return string(value)
}
