package roster

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/smfc/matchday/internal/domain/model"
)

// Header labels of the roster sheet.
var xlsxHeader = []string{"Name", "Position", "PAC", "SHO", "PAS", "DRI", "DEF", "PHY", "StarRating"}

// XLSXParser reads the first sheet of a workbook.
type XLSXParser struct{}

// NewXLSXParser creates an XLSX roster parser.
func NewXLSXParser() *XLSXParser { return &XLSXParser{} }

// Parse decodes data.
func (p *XLSXParser) Parse(data []byte) ([]model.RatedPlayer, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyRoster
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	if _, ok := col["NAME"]; !ok {
		return nil, fmt.Errorf("%w: Name", ErrMissingColumn)
	}

	cell := func(row []string, name string) string {
		i, ok := col[strings.ToUpper(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(row []string, name string, def float64) float64 {
		v, err := strconv.ParseFloat(cell(row, name), 64)
		if err != nil {
			return def
		}
		return rating(&v, def)
	}

	players := make([]model.RatedPlayer, 0, len(rows)-1)
	for _, row := range rows[1:] {
		players = append(players, model.RatedPlayer{
			Name:        cell(row, "Name"),
			Position:    model.ParsePosition(cell(row, "Position")),
			Pace:        num(row, "PAC", model.DefaultAttribute),
			Shooting:    num(row, "SHO", model.DefaultAttribute),
			Passing:     num(row, "PAS", model.DefaultAttribute),
			Dribbling:   num(row, "DRI", model.DefaultAttribute),
			Defending:   num(row, "DEF", model.DefaultAttribute),
			Physicality: num(row, "PHY", model.DefaultAttribute),
			StarRating:  num(row, "StarRating", model.DefaultStarRating),
		})
	}
	return finish(players)
}

// EncodeXLSX writes players to a single-sheet workbook that XLSXParser reads.
func EncodeXLSX(players []model.RatedPlayer) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := make([]any, len(xlsxHeader))
	for i, h := range xlsxHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, p := range players {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{p.Name, string(p.Position), p.Pace, p.Shooting, p.Passing, p.Dribbling, p.Defending, p.Physicality, p.StarRating}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
