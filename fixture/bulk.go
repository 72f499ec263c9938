package fixture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/getpup/pupsourcing-savedobjects"
)

const maxLineSize = 16 << 20

// Action is one index request of a bulk file.
type Action struct {
	Index    string
	Document savedobjects.Document
}

type actionLine struct {
	Index *struct {
		Index string `json:"_index"`
		Type  string `json:"_type"`
		ID    string `json:"_id"`
	} `json:"index"`
}

// ParseBulk reads newline-delimited JSON made of alternating action lines,
// {"index":{"_index":..,"_type":..,"_id":..}}, and document bodies.
// Blank lines are ignored.
func ParseBulk(r io.Reader) ([]Action, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var actions []Action
	var pending *Action
	line := 0

	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		if pending == nil {
			a, err := parseAction(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			pending = &a
			continue
		}

		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("line %d: invalid document body for %q: %w", line, pending.Document.ID, err)
		}
		if body == nil {
			return nil, fmt.Errorf("line %d: document body for %q is not an object", line, pending.Document.ID)
		}
		pending.Document.Attributes = body
		actions = append(actions, *pending)
		pending = nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bulk source: %w", err)
	}
	if pending != nil {
		return nil, fmt.Errorf("action for %q has no document body", pending.Document.ID)
	}
	return actions, nil
}

func parseAction(raw []byte) (Action, error) {
	var l actionLine
	if err := json.Unmarshal(raw, &l); err != nil {
		return Action{}, fmt.Errorf("invalid action: %w", err)
	}
	if l.Index == nil {
		return Action{}, fmt.Errorf("unsupported action %s", raw)
	}
	if l.Index.ID == "" {
		return Action{}, fmt.Errorf("action is missing _id")
	}
	t, err := savedobjects.ParseType(l.Index.Type)
	if err != nil {
		return Action{}, fmt.Errorf("action for %q: %w", l.Index.ID, err)
	}
	return Action{
		Index:    l.Index.Index,
		Document: savedobjects.Document{ID: l.Index.ID, Type: t},
	}, nil
}
