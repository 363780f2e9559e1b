package utils

import "testing"

func TestStructToOrderedMapKeepsOrder(t *testing.T) {
	row := struct {
		Name   string `json:"name"`
		Port   int    `json:"port"`
		Status string `json:"status"`
	}{"web", 6000, "running"}

	om, err := StructToOrderedMap(row)
	if err != nil {
		t.Fatalf("StructToOrderedMap: %v", err)
	}
	keys := om.Keys()
	if len(keys) != 3 || keys[0] != "name" || keys[1] != "port" || keys[2] != "status" {
		t.Fatalf("keys = %v", keys)
	}
	v, _ := om.Get("port")
	if got := formatCell(v); got != "6000" {
		t.Errorf("formatCell(port) = %q", got)
	}
}
