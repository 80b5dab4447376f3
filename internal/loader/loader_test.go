package loader

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTable(t *testing.T) {
	path := writeFile(t, "timestamp,flow\n2020-01-01 00:00:00,1.5\n2020-01-01 00:15:00,2.5\n")
	s, err := ReadTable(path, time.UTC)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", s.Len())
	}
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if !s.Times[0].Equal(want) {
		t.Errorf("first timestamp = %v, want %v", s.Times[0], want)
	}
	if s.Values[1] != 2.5 {
		t.Errorf("second value = %v, want 2.5", s.Values[1])
	}
}

func TestReadTableEmptyCellIsMissing(t *testing.T) {
	path := writeFile(t, "timestamp,rain\n2020-01-01T00:00:00Z,0.1\n2020-01-01T00:15:00Z,\n")
	s, err := ReadTable(path, time.UTC)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if !math.IsNaN(s.Values[1]) {
		t.Errorf("empty cell = %v, want NaN", s.Values[1])
	}
}

func TestReadTableBadTimestamp(t *testing.T) {
	path := writeFile(t, "timestamp,flow\nlast tuesday,1.0\n")
	if _, err := ReadTable(path, time.UTC); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestReadTableParsesInLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	path := writeFile(t, "timestamp,flow\n2020-06-01 08:00:00,1.0\n")
	s, err := ReadTable(path, loc)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if s.Times[0].Hour() != 8 {
		t.Errorf("wall-clock hour = %d, want 8", s.Times[0].Hour())
	}
}
