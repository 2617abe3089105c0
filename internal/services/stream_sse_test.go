package services

import (
	"strings"
	"testing"
)

func TestStreamSSE_JoinsDataAndSkipsComments(t *testing.T) {
	body := ": keepalive\r\n" +
		"data: first\n" +
		"\n" +
		"data: part one\n" +
		"data: part two\n" +
		"\n" +
		"data: trailing without blank line"

	var got []string
	err := streamSSE(strings.NewReader(body), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("streamSSE: %v", err)
	}
	want := []string{"first", "part one\npart two", "trailing without blank line"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
