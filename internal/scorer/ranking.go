package scorer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Match is one role with its score.
type Match struct {
	Role  string
	Score float64
}

// Ranking is an ordered role -> score mapping. It marshals to a JSON object whose
// keys keep the ranking order.
type Ranking []Match

// Map returns the ranking as an unordered map.
func (r Ranking) Map() map[string]float64 {
	out := make(map[string]float64, len(r))
	for _, m := range r {
		out[m.Role] = m.Score
	}
	return out
}

// Roles returns the role identifiers in ranking order.
func (r Ranking) Roles() []string {
	out := make([]string, len(r))
	for i, m := range r {
		out[i] = m.Role
	}
	return out
}

// Score returns the score of role.
func (r Ranking) Score(role string) (float64, bool) {
	for _, m := range r {
		if m.Role == role {
			return m.Score, true
		}
	}
	return 0, false
}

func (r Ranking) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Role)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Score)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Ranking) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ranking must be a JSON object")
	}

	out := Ranking{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ranking key must be a string")
		}
		var score float64
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("ranking score for %q: %w", key, err)
		}
		out = append(out, Match{Role: key, Score: score})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}
