package layout

import "testing"

func TestKeys(t *testing.T) {
	l := Layout{Root: "images"}
	id := "epic_1b_20200101000000"

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"catalog", l.Catalog("2020-01-01"), "images/list/images_2020-01-01.json"},
		{"available dates", l.AvailableDates(), "images/available_dates.json"},
		{"latest", l.Latest(), "images/images_latest.json"},
		{"png", l.PNG(id), "images/png/" + id + ".png"},
		{"debug", l.Debug(id), "images/debug/" + id + ".png"},
		{"full jpg", l.Resolution(2048, id), "images/jpg/" + id + ".jpg"},
		{"thumbnail", l.Resolution(120, id), "images/thumbs/" + id + ".jpg"},
		{"1024", l.Resolution(1024, id), "images/jpg/1024/" + id + ".jpg"},
		{"256", l.Resolution(256, id), "images/jpg/256/" + id + ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}

func TestDateFromCatalogKey(t *testing.T) {
	l := Layout{Root: "enhanced_images"}

	d, ok := l.DateFromCatalogKey("enhanced_images/list/images_2016-07-05.json")
	if !ok || d != "2016-07-05" {
		t.Errorf("Expected 2016-07-05, got %q (ok=%v)", d, ok)
	}

	for _, key := range []string{
		"enhanced_images/list/images_latest.json",
		"enhanced_images/list/images_2016-07-05.json.bak",
		"images/list/images_2016-07-05.json",
	} {
		if _, ok := l.DateFromCatalogKey(key); ok {
			t.Errorf("Expected %s to be rejected", key)
		}
	}
}
