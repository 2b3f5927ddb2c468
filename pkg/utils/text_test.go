package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("multi-byte: got %q", got)
	}
	if got := Truncate("ééé", 3); got != "ééé" {
		t.Errorf("exactly maxLen runes should be unchanged, got %q", got)
	}
}

func TestRuneCount(t *testing.T) {
	if RuneCount("héllo") != 5 {
		t.Errorf("RuneCount: got %d", RuneCount("héllo"))
	}
}
