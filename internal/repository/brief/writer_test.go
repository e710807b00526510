package brief

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/clustra-io/clustra/internal/domain"
)

func testAnalysis() *domain.Analysis {
	match := true
	return &domain.Analysis{
		RunID: "run-1",
		Clusters: []domain.Cluster{
			{
				ID: 0,
				Members: []domain.KeywordRecord{
					{Text: "caribbean cruise", Volume: 1000, VolumeKnown: true},
					{Text: "cruise deals", Volume: 500, VolumeKnown: true},
				},
				Coherence:          0.91,
				HubKeyword:         "caribbean cruise",
				Primary:            []string{"caribbean cruise", "cruise deals"},
				TotalVolume:        1500,
				DetectedCategory:   "/Travel/Cruises & Charters",
				CategoryConfidence: 0.87,
				MatchesTarget:      &match,
				TopEntities:        []string{"Caribbean", "cruise"},
			},
			{
				ID:         1,
				Members:    []domain.KeywordRecord{{Text: "family vacation", Volume: 800, VolumeKnown: true}},
				Coherence:  1.0,
				HubKeyword: "family vacation",
				Primary:    []string{"family vacation"},
			},
		},
		Cannibalization: []domain.CannibalizationPair{
			{ClusterA: 0, ClusterB: 1, OverlapRatio: 0.9},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "cluster_id" || rows[0][len(rows[0])-1] != "cannibalization_flag" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	first := rows[1]
	if first[1] != "caribbean cruise" {
		t.Errorf("hub_keyword = %q", first[1])
	}
	if first[2] != "2" || first[3] != "1500" {
		t.Errorf("counts = %q / %q", first[2], first[3])
	}
	if first[10] != "true" {
		t.Errorf("matches_target = %q", first[10])
	}
	if first[12] != "true" {
		t.Errorf("cannibalization_flag = %q", first[12])
	}

	second := rows[2]
	if second[8] != "" || second[9] != "" || second[10] != "" {
		t.Errorf("unannotated cluster must leave category cells empty: %v", second)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, testAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Strategic Brief")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "cluster_id" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "caribbean cruise" {
		t.Errorf("hub_keyword = %q", rows[1][1])
	}
	if rows[2][1] != "family vacation" {
		t.Errorf("hub_keyword = %q", rows[2][1])
	}
}

func TestWriteCSV_EmptyAnalysis(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, &domain.Analysis{RunID: "run-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back CSV: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
