package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// CanonicalCoords turns the coords field into a canonical JSON object.
// The API delivers coords either as a nested object or as a string holding a
// Python-style mapping (single quotes, trailing comma).
func CanonicalCoords(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("coords missing")
	}

	text := raw
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("coords string: %w", err)
		}
		s = strings.ReplaceAll(s, "'", `"`)
		s = strings.TrimRight(strings.TrimSpace(s), ",")
		s = trailingComma.ReplaceAllString(s, "$1")
		text = []byte(s)
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("coords not a JSON object: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("coords has trailing data")
	}
	return json.Marshal(obj)
}

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type positions struct {
	Sun    *position `json:"sun_j2000_position"`
	Lunar  *position `json:"lunar_j2000_position"`
	DSCOVR *position `json:"dscovr_j2000_position"`
}

// Alignment returns the magnitudes of lunar x DSCOVR and lunar x Sun for the
// unit J2000 position vectors in canonical coords. Values near zero flag the
// Moon in frame or an eclipse.
func Alignment(coords json.RawMessage) (lunarDSCOVR, lunarSun float64, err error) {
	var p positions
	if err := json.Unmarshal(coords, &p); err != nil {
		return 0, 0, err
	}
	sun, err := unit("sun_j2000_position", p.Sun)
	if err != nil {
		return 0, 0, err
	}
	lunar, err := unit("lunar_j2000_position", p.Lunar)
	if err != nil {
		return 0, 0, err
	}
	dscovr, err := unit("dscovr_j2000_position", p.DSCOVR)
	if err != nil {
		return 0, 0, err
	}
	return r3.Norm(r3.Cross(lunar, dscovr)), r3.Norm(r3.Cross(lunar, sun)), nil
}

func unit(name string, p *position) (r3.Vec, error) {
	if p == nil {
		return r3.Vec{}, fmt.Errorf("%s missing", name)
	}
	v := r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
	if r3.Norm(v) == 0 {
		return r3.Vec{}, fmt.Errorf("%s is a zero vector", name)
	}
	return r3.Unit(v), nil
}
