package test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mickamy/qbplan/internal/analyzer"
	"github.com/mickamy/qbplan/internal/model"
	"github.com/mickamy/qbplan/internal/parser"
	"github.com/mickamy/qbplan/internal/plantree"
	"github.com/mickamy/qbplan/internal/qblock"
)

var (
	rootPath string
	once     sync.Once
)

// RootPath resolves the repository root (where go.mod resides).
func RootPath(t *testing.T) string {
	t.Helper()
	once.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getwd: %v", err)
		}
		for {
			if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
				rootPath = wd
				break
			}
			next := filepath.Dir(wd)
			if next == wd {
				t.Fatalf("go.mod not found from %s", wd)
			}
			wd = next
		}
	})
	return rootPath
}

// LoadSampleRows reads explain rows from a file under samples/, picking the format
// from its extension.
func LoadSampleRows(t *testing.T, rel string) []model.ExplainRow {
	t.Helper()
	path := filepath.Join(RootPath(t), "samples", rel)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open rows: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := parser.Parse(f, parser.FormatFromPath(path))
	if err != nil {
		t.Fatalf("parse rows: %v", err)
	}
	return rows
}

// LoadSamplePlan builds the plan tree of a sample file.
func LoadSamplePlan(t *testing.T, rel string) *model.Plan {
	t.Helper()
	arena, err := qblock.Partition(LoadSampleRows(t, rel))
	if err != nil {
		t.Fatalf("partition rows: %v", err)
	}
	plan, err := plantree.Build(arena)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	return plan
}

// LoadSampleAnalysis loads and analyzes a plan relative to the repository root.
func LoadSampleAnalysis(t *testing.T, rel string) *analyzer.PlanAnalysis {
	t.Helper()
	analysis, err := analyzer.Analyze(LoadSamplePlan(t, rel))
	if err != nil {
		t.Fatalf("analyze plan: %v", err)
	}
	return analysis
}
