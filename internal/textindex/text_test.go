package textindex

import (
	"reflect"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected untruncated text, got %q", got)
	}
	if got := Truncate("this is a long sentence", 10); got != "this is..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestTokenizeQueryDedupsAndCaps(t *testing.T) {
	got := TokenizeQuery("push: push -rf retry retry more tokens here", 3)
	want := []string{"push", "rf", "retry"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

