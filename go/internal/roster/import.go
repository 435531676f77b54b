// Package roster parses bulk player sheets uploaded by schedulers.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/courtside/livescore/go/internal/models"
)

var ErrNoPlayers = errors.New("no valid player rows found; expected columns \"Jersey Number\", \"Player Name\" and \"Team\"")

// Entry is one parsed player row.
type Entry struct {
	Team         models.Team `json:"team"`
	JerseyNumber string      `json:"jerseyNumber"`
	PlayerName   string      `json:"playerName"`
}

// Result is the outcome of parsing one sheet.
type Result struct {
	Entries []Entry `json:"entries"`
	Skipped int     `json:"skipped"`
}

// Counts returns the number of entries per team.
func (r *Result) Counts() (a, b int) {
	for _, e := range r.Entries {
		if e.Team == models.TeamB {
			b++
		} else {
			a++
		}
	}
	return a, b
}

type column int

const (
	colJersey column = iota
	colName
	colTeam
	colUnknown
)

var headerAliases = map[string]column{
	"jersey number": colJersey,
	"jersey":        colJersey,
	"number":        colJersey,
	"player name":   colName,
	"playername":    colName,
	"name":          colName,
	"team":          colTeam,
}

// ParseXLSX reads the first sheet of an xlsx workbook.
func ParseXLSX(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoPlayers
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return parseRows(rows)
}

// ParseCSV reads a comma separated sheet with a header row.
func ParseCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoPlayers
	}
	cols := make([]column, len(rows[0]))
	hasName := false
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		c, ok := headerAliases[key]
		if !ok {
			c = colUnknown
		}
		cols[i] = c
		hasName = hasName || c == colName
	}
	if !hasName {
		return nil, ErrNoPlayers
	}

	res := &Result{}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var e Entry
		team := ""
		for i, cell := range row {
			if i >= len(cols) {
				break
			}
			switch cols[i] {
			case colJersey:
				e.JerseyNumber = strings.TrimSpace(cell)
			case colName:
				e.PlayerName = strings.TrimSpace(cell)
			case colTeam:
				team = cell
			}
		}
		if e.PlayerName == "" {
			res.Skipped++
			continue
		}
		e.Team = models.TeamA
		if t, ok := models.ParseTeam(team); ok {
			e.Team = t
		}
		res.Entries = append(res.Entries, e)
	}
	if len(res.Entries) == 0 {
		return nil, ErrNoPlayers
	}
	return res, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// TemplateCSV is the sample sheet offered for download.
func TemplateCSV() []byte {
	return []byte("Jersey Number,Player Name,Team\n" +
		"4,Player One,A\n" +
		"7,Player Two,A\n" +
		"11,Player Three,B\n" +
		"23,Player Four,B\n")
}
