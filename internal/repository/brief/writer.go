// Package brief renders a clustering analysis as a strategic brief in CSV
// or XLSX form.
package brief

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/clustra-io/clustra/internal/domain"
)

var columns = []string{
	"cluster_id",
	"hub_keyword",
	"total_keywords",
	"total_volume",
	"coherence",
	"primary_keywords",
	"secondary_keywords",
	"tertiary_keywords",
	"detected_category",
	"category_confidence",
	"matches_target",
	"top_entities",
	"cannibalization_flag",
}

// WriteCSV writes the brief as CSV, one row per cluster.
func WriteCSV(w io.Writer, analysis *domain.Analysis) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write brief header: %w", err)
	}

	for i := range analysis.Clusters {
		if err := cw.Write(clusterRow(analysis, &analysis.Clusters[i])); err != nil {
			return fmt.Errorf("write brief row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush brief: %w", err)
	}
	return nil
}

// WriteXLSX writes the brief as a single-sheet workbook.
func WriteXLSX(w io.Writer, analysis *domain.Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Strategic Brief"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create brief sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell %d: %w", col, err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("set header %s: %w", name, err)
		}
	}

	for i := range analysis.Clusters {
		row := clusterRow(analysis, &analysis.Clusters[i])
		for col, val := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("cell (%d,%d): %w", col, i, err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	// Keyword list columns get extra width for readability.
	if err := f.SetColWidth(sheet, "F", "H", 40); err != nil {
		return fmt.Errorf("set column widths: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func clusterRow(analysis *domain.Analysis, c *domain.Cluster) []string {
	matches := ""
	if c.MatchesTarget != nil {
		matches = strconv.FormatBool(*c.MatchesTarget)
	}

	return []string{
		strconv.Itoa(c.ID),
		c.HubKeyword,
		strconv.Itoa(c.Size()),
		strconv.FormatInt(c.TotalVolume, 10),
		strconv.FormatFloat(c.Coherence, 'f', 4, 64),
		strings.Join(c.Primary, ", "),
		strings.Join(c.Secondary, ", "),
		strings.Join(c.Tertiary, ", "),
		c.DetectedCategory,
		formatConfidence(c),
		matches,
		strings.Join(c.TopEntities, ", "),
		strconv.FormatBool(analysis.CannibalizationFlag(c.ID)),
	}
}

func formatConfidence(c *domain.Cluster) string {
	if c.DetectedCategory == "" {
		return ""
	}
	return strconv.FormatFloat(c.CategoryConfidence, 'f', 4, 64)
}
