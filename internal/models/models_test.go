package models

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestParseDateKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DateKey
		wantErr bool
	}{
		{name: "valid", input: "2016-07-05", want: "2016-07-05"},
		{name: "surrounding spaces", input: " 2016-03-09 ", want: "2016-03-09"},
		{name: "wrong layout", input: "07/05/2016", wantErr: true},
		{name: "impossible day", input: "2016-02-31", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseDateList(t *testing.T) {
	dates, err := ParseDateList("2016-07-05, 2016-03-09,2017-02-12")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []DateKey{"2016-07-05", "2016-03-09", "2017-02-12"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("Expected %v, got %v", want, dates)
	}

	if _, err := ParseDateList("2016-07-05,yesterday"); err == nil {
		t.Error("Expected error for invalid date in list")
	}
}

func TestArchiveDate(t *testing.T) {
	y, m, d, err := ArchiveDate("epic_1b_20150613110250")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if y != "2015" || m != "06" || d != "13" {
		t.Errorf("Expected 2015/06/13, got %s/%s/%s", y, m, d)
	}

	for _, id := range []string{"epic_1b", "epic_1b_2015", "epic_1b_2015x613110250"} {
		_, _, _, err := ArchiveDate(id)
		var malformed *MalformedRecordError
		if !errors.As(err, &malformed) {
			t.Errorf("Expected MalformedRecordError for %q, got %v", id, err)
		}
	}
}

func TestImageRecordPreservesUnknownFields(t *testing.T) {
	input := `{"image":"epic_1b_20200101000000","date":"2020-01-01 00:00:00","caption":"hello","version":"03","coords":{"a":1}}`

	var rec ImageRecord
	if err := json.Unmarshal([]byte(input), &rec); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.ImageID != "epic_1b_20200101000000" {
		t.Errorf("Expected image id, got %q", rec.ImageID)
	}
	if rec.Cache != nil {
		t.Errorf("Expected no cache, got %+v", rec.Cache)
	}

	rec.Cache = NewGeometryCache(GeometryDescriptor{Circle: CircleDescriptor{Radius: 0.4}})
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, key := range []string{"image", "date", "caption", "version", "coords", "cache"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Expected key %q in %s", key, out)
		}
	}
	if !strings.Contains(string(fields["cache"]), `"earth_circle"`) {
		t.Errorf("Expected earth_circle in cache, got %s", fields["cache"])
	}
}

func TestCapturedAt(t *testing.T) {
	rec := ImageRecord{ImageID: "x", Date: "2020-01-01 10:11:12"}
	if _, err := rec.CapturedAt(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	rec.Date = "2020-01-01T10:11:12Z"
	_, err := rec.CapturedAt()
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) || malformed.Field != "date" {
		t.Errorf("Expected MalformedRecordError on date, got %v", err)
	}
}

func TestCanonicalCoords(t *testing.T) {
	dictForm := json.RawMessage(`{"centroid":{"lat":1.5,"lon":-20},"attitude":[1,2,3]}`)
	reprForm, _ := json.Marshal(`{'centroid': {'lat': 1.5, 'lon': -20,}, 'attitude': [1, 2, 3,],},`)

	fromDict, err := CanonicalCoords(dictForm)
	if err != nil {
		t.Fatalf("Unexpected error for dict form: %v", err)
	}
	fromRepr, err := CanonicalCoords(reprForm)
	if err != nil {
		t.Fatalf("Unexpected error for repr form: %v", err)
	}

	if !json.Valid(fromRepr) {
		t.Fatalf("Expected valid JSON, got %s", fromRepr)
	}
	if strings.Contains(string(fromRepr), "'") {
		t.Errorf("Expected double quotes only, got %s", fromRepr)
	}
	if strings.Contains(string(fromRepr), ",}") || strings.Contains(string(fromRepr), ",]") {
		t.Errorf("Expected no trailing commas, got %s", fromRepr)
	}

	var a, b any
	_ = json.Unmarshal(fromDict, &a)
	_ = json.Unmarshal(fromRepr, &b)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Expected repr form to match dict form:\n%s\n%s", fromDict, fromRepr)
	}
}

func TestCanonicalCoordsRejectsGarbage(t *testing.T) {
	for _, raw := range []string{``, `null`, `"not a mapping"`, `[1,2]`, `"{'a': 1} {'b': 2}"`} {
		if _, err := CanonicalCoords(json.RawMessage(raw)); err == nil {
			t.Errorf("Expected error for %s", raw)
		}
	}
}

func TestAlignment(t *testing.T) {
	coords := json.RawMessage(`{
		"sun_j2000_position": {"x": 0, "y": 10, "z": 0},
		"lunar_j2000_position": {"x": 5, "y": 0, "z": 0},
		"dscovr_j2000_position": {"x": 3, "y": 0, "z": 0}
	}`)

	lunarDSCOVR, lunarSun, err := Alignment(coords)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(lunarDSCOVR) > 1e-12 {
		t.Errorf("Expected parallel vectors to give 0, got %f", lunarDSCOVR)
	}
	if math.Abs(lunarSun-1) > 1e-12 {
		t.Errorf("Expected perpendicular unit vectors to give 1, got %f", lunarSun)
	}

	if _, _, err := Alignment(json.RawMessage(`{"sun_j2000_position": {"x": 1, "y": 0, "z": 0}}`)); err == nil {
		t.Error("Expected error for missing positions")
	}
}
