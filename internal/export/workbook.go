// Package export renders the journal, the agent roster and the palmares into
// an .xlsx workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/ranking"
	"github.com/xuri/excelize/v2"
)

const (
	SheetJournal  = "Journal"
	SheetAgents   = "Agents"
	SheetPalmares = "Palmares"

	// numFmtMoney is excelize's built-in "#,##0.00" format.
	numFmtMoney = 4
)

// Snapshot is everything a workbook is rendered from.
type Snapshot struct {
	GeneratedAt time.Time
	Agents      []domain.Agent
	Accidents   []domain.Accident
	Leaderboard ranking.Leaderboard
}

type sheetWriter struct {
	file   *excelize.File
	header int
	money  int
}

// WriteWorkbook writes the three-sheet workbook to w.
func WriteWorkbook(w io.Writer, snapshot Snapshot) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	header, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F2D7D5"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	money, err := file.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}
	sw := sheetWriter{file: file, header: header, money: money}

	if err := file.SetSheetName(file.GetSheetName(0), SheetJournal); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetAgents, SheetPalmares} {
		if _, err := file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	names := agentNames(snapshot.Agents)
	if err := sw.journal(snapshot.Accidents, names); err != nil {
		return err
	}
	if err := sw.agents(snapshot.Agents); err != nil {
		return err
	}
	if err := sw.palmares(snapshot.Leaderboard, snapshot.GeneratedAt); err != nil {
		return err
	}

	file.SetActiveSheet(0)
	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func agentNames(agents []domain.Agent) map[string]string {
	out := make(map[string]string, len(agents))
	for _, agent := range agents {
		out[agent.ID] = agent.Name
	}
	return out
}

func (sw sheetWriter) journal(accidents []domain.Accident, names map[string]string) error {
	if err := sw.headerRow(SheetJournal, 1, "Date", "Description", "Cost", "Reported by", "Agent"); err != nil {
		return err
	}
	for i, accident := range accidents {
		agent := ""
		if !accident.Unassigned() {
			agent = names[accident.AgentID]
			if agent == "" {
				agent = accident.AgentID
			}
		}
		row := i + 2
		if err := sw.row(SheetJournal, row, accident.Date, accident.Description, accident.Cost.InexactFloat64(), accident.AddedBy, agent); err != nil {
			return err
		}
		if err := sw.moneyCell(SheetJournal, 3, row); err != nil {
			return err
		}
	}
	return sw.widths(SheetJournal, map[string]float64{"A": 12, "B": 48, "C": 12, "D": 18, "E": 20})
}

func (sw sheetWriter) agents(agents []domain.Agent) error {
	if err := sw.headerRow(SheetAgents, 1, "Number", "Name", "Accidents", "Total cost", "Combined score"); err != nil {
		return err
	}
	for i, agent := range agents {
		row := i + 2
		if err := sw.row(SheetAgents, row, agent.AgentNumber, agent.Name, agent.TotalAccidents, agent.TotalCost.InexactFloat64(), agent.CombinedScore().InexactFloat64()); err != nil {
			return err
		}
		for _, col := range []int{4, 5} {
			if err := sw.moneyCell(SheetAgents, col, row); err != nil {
				return err
			}
		}
	}
	return sw.widths(SheetAgents, map[string]float64{"A": 10, "B": 24, "C": 12, "D": 14, "E": 16})
}

func (sw sheetWriter) palmares(board ranking.Leaderboard, generatedAt time.Time) error {
	row := 1
	sections := []struct {
		title     string
		standings []ranking.Standing
	}{
		{"Most accidents", board.ByAccident},
		{"Highest cost", board.ByCost},
		{"Combined (accidents x cost)", board.ByCombined},
	}
	for _, section := range sections {
		if err := sw.headerRow(SheetPalmares, row, section.title, "Agent", "Tier", "Score"); err != nil {
			return err
		}
		row++
		for _, standing := range section.standings {
			if err := sw.row(SheetPalmares, row, standing.Rank, standing.Agent.Name, string(standing.Tier), standing.Score.InexactFloat64()); err != nil {
				return err
			}
			row++
		}
		row++
	}

	summary := board.Summary
	if err := sw.headerRow(SheetPalmares, row, "Statistics", "Value"); err != nil {
		return err
	}
	stats := [][]any{
		{"Agents", summary.AgentCount},
		{"Total accidents", summary.TotalAccidents},
		{"Total cost", summary.TotalCost.InexactFloat64()},
		{"Average accidents per agent", summary.AverageAccidentsPerAgent},
	}
	if !generatedAt.IsZero() {
		stats = append(stats, []any{"Generated at", generatedAt.Format(time.RFC3339)})
	}
	for _, stat := range stats {
		row++
		if err := sw.row(SheetPalmares, row, stat...); err != nil {
			return err
		}
	}
	return sw.widths(SheetPalmares, map[string]float64{"A": 30, "B": 24, "C": 10, "D": 14})
}

func (sw sheetWriter) headerRow(sheet string, row int, titles ...string) error {
	values := make([]any, 0, len(titles))
	for _, title := range titles {
		values = append(values, title)
	}
	if err := sw.row(sheet, row, values...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)
	if err := sw.file.SetCellStyle(sheet, first, last, sw.header); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

func (sw sheetWriter) row(sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	if err := sw.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func (sw sheetWriter) moneyCell(sheet string, col, row int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return sw.file.SetCellStyle(sheet, cell, cell, sw.money)
}

func (sw sheetWriter) widths(sheet string, widths map[string]float64) error {
	for col, width := range widths {
		if err := sw.file.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set %s column %s width: %w", sheet, col, err)
		}
	}
	return nil
}
