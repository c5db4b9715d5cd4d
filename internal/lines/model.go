package lines

import (
	"encoding/json"
	"strings"
)

// Line is one entry of the timetable as published upstream. It is only used
// to read the dataset; the cached document itself is never rewritten.
type Line struct {
	Linha    string   `json:"linha"`
	Nome     string   `json:"nome"`
	PartidaA []string `json:"partida_a"`
	PartidaB []string `json:"partida_b"`
}

type catalog struct {
	Linhas []Line `json:"linhas"`
}

// ParseLines decodes the line list out of a dataset.
func ParseLines(d Dataset) ([]Line, error) {
	var c catalog
	if err := json.Unmarshal(d, &c); err != nil {
		return nil, err
	}
	return c.Linhas, nil
}

// FindLine returns the line whose code matches, ignoring case and
// surrounding whitespace.
func FindLine(ls []Line, code string) (Line, bool) {
	code = strings.TrimSpace(code)
	for _, l := range ls {
		if strings.EqualFold(l.Linha, code) {
			return l, true
		}
	}
	return Line{}, false
}
