package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestGroupBySessionOrderAndPreview(t *testing.T) {
	t.Parallel()

	flat := []historyMessage{
		{SessionID: "A", Role: "user", Content: "hi"},
		{SessionID: "A", Role: "assistant", Content: "hello"},
		{SessionID: "B", Role: "assistant", Content: "x"},
	}

	groups := groupBySession(flat)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].sessionID != "A" || groups[1].sessionID != "B" {
		t.Fatalf("expected group order A, B; got %s, %s", groups[0].sessionID, groups[1].sessionID)
	}
	if groups[0].preview != "hi" {
		t.Fatalf("expected preview %q, got %q", "hi", groups[0].preview)
	}
	if groups[0].messageCount != 2 {
		t.Fatalf("expected message count 2, got %d", groups[0].messageCount)
	}
	if groups[1].preview != historyPreviewFallback {
		t.Fatalf("expected fallback preview %q, got %q", historyPreviewFallback, groups[1].preview)
	}
	if groups[1].messageCount != 1 {
		t.Fatalf("expected message count 1, got %d", groups[1].messageCount)
	}
}

func TestGroupBySessionKeepsInputOrderInsideGroups(t *testing.T) {
	t.Parallel()

	// Interleaved sessions with deliberately out-of-order timestamps. The
	// aggregator trusts input order and never re-sorts.
	flat := []historyMessage{
		{SessionID: "A", Role: "user", Content: "first", Timestamp: "2026-08-02T10:00:00Z"},
		{SessionID: "B", Role: "user", Content: "other", Timestamp: "2026-08-01T09:00:00Z"},
		{SessionID: "A", Role: "assistant", Content: "second", Timestamp: "2026-08-01T08:00:00Z"},
	}

	groups := groupBySession(flat)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	a := groups[0]
	if a.messages[0].content != "first" || a.messages[1].content != "second" {
		t.Fatalf("group A lost input order: %+v", a.messages)
	}
	if a.lastTimestamp != "2026-08-01T08:00:00Z" {
		t.Fatalf("lastTimestamp must follow input order, not clock order; got %q", a.lastTimestamp)
	}
}

func TestGroupBySessionDeterministicAndIdempotent(t *testing.T) {
	t.Parallel()

	flat := []historyMessage{
		{SessionID: "s2", Role: "user", Content: "b", Timestamp: "2026-08-20T12:00:00Z"},
		{SessionID: "s1", Role: "user", Content: "a", Timestamp: "2026-08-21T12:00:00Z"},
		{SessionID: "s2", Role: "assistant", Content: "c", Timestamp: "2026-08-20T12:00:05Z"},
		{SessionID: "s3", Role: "assistant", Content: "d", Timestamp: "2026-08-19T12:00:00Z"},
	}

	first := groupBySession(flat)
	second := groupBySession(flat)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grouping is not deterministic:\n%+v\n%+v", first, second)
	}

	regrouped := groupBySession(flattenGroups(first))
	if !reflect.DeepEqual(first, regrouped) {
		t.Fatalf("grouping is not idempotent under flatten+regroup:\n%+v\n%+v", first, regrouped)
	}
}

func TestGroupBySessionEmptyInput(t *testing.T) {
	t.Parallel()

	if groups := groupBySession(nil); len(groups) != 0 {
		t.Fatalf("expected no groups for empty input, got %d", len(groups))
	}
}

func TestPreviewTruncation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short stays verbatim", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"exact limit stays verbatim", strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{"long is cut with marker", strings.Repeat("a", 150), strings.Repeat("a", 100) + "..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := previewText(tc.content); got != tc.want {
				t.Errorf("previewText length %d: got %d chars %q", len(tc.content), len(got), got[:min(len(got), 20)])
			}
		})
	}
}

func TestPreviewTruncationCountsRunes(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("日", 150)
	got := previewText(content)
	runes := []rune(got)
	if len(runes) != historyPreviewLimit+3 {
		t.Fatalf("expected %d runes plus marker, got %d", historyPreviewLimit, len(runes))
	}
	if string(runes[:historyPreviewLimit]) != strings.Repeat("日", historyPreviewLimit) {
		t.Fatal("truncation split the content incorrectly")
	}
}

func TestPreviewUsesFirstUserMessage(t *testing.T) {
	t.Parallel()

	flat := []historyMessage{
		{SessionID: "A", Role: "assistant", Content: "welcome"},
		{SessionID: "A", Role: "user", Content: "the real preview"},
		{SessionID: "A", Role: "user", Content: "not this one"},
	}
	groups := groupBySession(flat)
	if groups[0].preview != "the real preview" {
		t.Fatalf("expected first user message as preview, got %q", groups[0].preview)
	}
}
