// Package roster imports the club's rated players from local files.
//
// Two formats are understood: a YAML document with a top-level "players"
// list, and an XLSX workbook whose first sheet has a header row with the
// columns Name, Position, PAC, SHO, PAS, DRI, DEF, PHY and StarRating.
// Missing or zero ratings fall back to model.DefaultAttribute, a missing
// star rating to model.DefaultStarRating and a missing position to MID.
// Rows without a name are skipped and the result is sorted by name.
package roster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smfc/matchday/internal/domain/model"
)

// Parser decodes a roster file.
type Parser interface {
	Parse(data []byte) ([]model.RatedPlayer, error)
}

// ParserFor picks a parser from the file extension.
func ParserFor(filename string) (Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		return NewYAMLParser(), nil
	case ".xlsx":
		return NewXLSXParser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Load reads and parses the roster at path.
func Load(path string) ([]model.RatedPlayer, error) {
	p, err := ParserFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	players, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", filepath.Base(path), err)
	}
	return players, nil
}

// rating applies the attribute default to a missing or zero value.
func rating(v *float64, def float64) float64 {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

// finish drops nameless rows, keeps the last row per name and sorts by name.
func finish(players []model.RatedPlayer) ([]model.RatedPlayer, error) {
	byName := make(map[string]model.RatedPlayer, len(players))
	for _, p := range players {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		byName[p.Name] = p
	}
	if len(byName) == 0 {
		return nil, ErrEmptyRoster
	}

	out := make([]model.RatedPlayer, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
