package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

var sample = []Row{
	{
		Day:         "2020-01-01",
		Date:        "2020-01-01 00:13:03",
		Image:       "epic_1b_20200101001751",
		LunarDSCOVR: 0.25,
		LunarSun:    0.5,
		Link:        "https://storage.cloud.google.com/bucket/images/debug/epic_1b_20200101001751.png",
	},
	{
		Day:   "2020-01-01",
		Date:  "2020-01-01 01:13:03",
		Image: "epic_1b_20200101011751",
	},
}

func TestPath(t *testing.T) {
	got := Path("/tmp", "csv", time.Unix(1577836800, 0))
	if got != "/tmp/1577836800.csv" {
		t.Errorf("Expected /tmp/1577836800.csv, got %s", got)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	var l Log
	for _, r := range sample {
		l.Add(r)
	}
	if err := Write(path, l.Rows()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0], header) {
		t.Errorf("Expected header %v, got %v", header, records[0])
	}
	expected := []string{"2020-01-01", "2020-01-01 00:13:03", "epic_1b_20200101001751", "0.25", "0.5", sample[0].Link}
	if !reflect.DeepEqual(records[1], expected) {
		t.Errorf("Expected %v, got %v", expected, records[1])
	}
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.parquet")
	if err := Write(path, sample); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows, sample) {
		t.Errorf("Expected %v, got %v", sample, rows)
	}
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := Write(path, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "day,date,image,lunar dscovr,lunar sun,link\n" {
		t.Errorf("Expected header only, got %q", data)
	}
}

func TestWriteUnsupported(t *testing.T) {
	if err := Write(filepath.Join(t.TempDir(), "audit.xlsx"), sample); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}
