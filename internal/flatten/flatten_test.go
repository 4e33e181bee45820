package flatten

import (
	"reflect"
	"testing"
)

func TestFlattenNestedObjectAndArray(t *testing.T) {
	obj, err := ParseObject(`{"a":{"b":1},"c":[10,20]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := Flatten(obj)
	want := map[string]string{"a.b": "1", "c[0]": "10", "c[1]": "20"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFlattenEmptyObject(t *testing.T) {
	obj, err := ParseObject(`{}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := Flatten(obj); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestFlattenLeafRendering(t *testing.T) {
	obj, err := ParseObject(`{"s":"txt","f":1.50,"big":12345678901234567890,"t":true,"n":null,"deep":{"arr":[{"x":"y"}]}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := Flatten(obj)
	want := map[string]string{
		"s":             "txt",
		"f":             "1.50",
		"big":           "12345678901234567890",
		"t":             "true",
		"n":             "null",
		"deep.arr[0].x": "y",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseObjectRejectsNonObjects(t *testing.T) {
	cases := []string{`[1,2]`, `"str"`, `42`, `true`, `not json`, ``}
	for _, c := range cases {
		if _, err := ParseObject(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}
