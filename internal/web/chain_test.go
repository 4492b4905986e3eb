package web

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestChainGalleryEscapesUserText(t *testing.T) {
	page := ChainPage{
		RootID: "r1",
		Doodles: []ChainDoodle{
			{ID: "r1", Artist: "<ada>", TailLength: 1, ImageURL: "/api/doodles/r1/image"},
			{ID: "c1", Artist: "bob", ParentID: "r1", TailLength: 2, ImageURL: "/api/doodles/c1/image"},
		},
	}
	var buf bytes.Buffer
	if err := ChainGallery(page).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	if strings.Contains(html, "<ada>") {
		t.Fatalf("expected artist to be escaped")
	}
	if !strings.Contains(html, "2 doodles by 2 artists") {
		t.Fatalf("expected summary line, got %s", html)
	}
	if !strings.Contains(html, `src="/api/doodles/c1/image"`) {
		t.Fatalf("expected image url for c1")
	}
}
