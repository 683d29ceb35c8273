package render_test

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/feedwatch/gazette/internal/render"
	"github.com/hazyhaar/feedwatch/gazette/internal/store"
	"github.com/hazyhaar/feedwatch/summarize"
)

var testResource = &store.Resource{
	ID:          "res-1",
	Name:        "Example Store",
	URL:         "https://example.com/product",
	Description: "price watch",
}

type parsedFeed struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel struct {
		Title         string `xml:"title"`
		Link          string `xml:"link"`
		LastBuildDate string `xml:"lastBuildDate"`
		Items         []struct {
			Title       string `xml:"title"`
			GUID        string `xml:"guid"`
			PubDate     string `xml:"pubDate"`
			Description string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
}

func parse(t *testing.T, data []byte) parsedFeed {
	t.Helper()
	var f parsedFeed
	if err := xml.Unmarshal(data, &f); err != nil {
		t.Fatalf("output is not well-formed XML: %v\n%s", err, data)
	}
	return f
}

func TestFeedEnvelope(t *testing.T) {
	out, err := render.Feed(testResource, nil)
	if err != nil {
		t.Fatal(err)
	}
	f := parse(t, out)
	if f.Version != "2.0" {
		t.Errorf("version = %q, want 2.0", f.Version)
	}
	if f.Channel.Title != "Example Store" {
		t.Errorf("title = %q", f.Channel.Title)
	}
	if len(f.Channel.Items) != 0 {
		t.Errorf("empty record set produced %d items", len(f.Channel.Items))
	}
	if f.Channel.LastBuildDate != "" {
		t.Errorf("empty record set carries lastBuildDate %q", f.Channel.LastBuildDate)
	}
}

func TestFeedItem(t *testing.T) {
	rec := &store.ChangeRecord{
		ID:          "rec-1",
		ResourceID:  "res-1",
		Title:       "Price drop",
		ChangesJSON: `[{"field":"price","old":"19.99","new":"14.99"},{"field":"stock","old":"out","new":"in"}]`,
		Summary:     "The price dropped and it is back in stock.",
		GUID:        "res-1-1767225600000",
		PublishedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}

	out, err := render.Feed(testResource, []*store.ChangeRecord{rec})
	if err != nil {
		t.Fatal(err)
	}
	f := parse(t, out)
	if len(f.Channel.Items) != 1 {
		t.Fatalf("got %d items", len(f.Channel.Items))
	}
	if f.Channel.LastBuildDate != "Thu, 01 Jan 2026 00:00:00 +0000" {
		t.Errorf("lastBuildDate = %q", f.Channel.LastBuildDate)
	}
	item := f.Channel.Items[0]
	if item.Title != "Price drop" {
		t.Errorf("title = %q", item.Title)
	}
	if item.GUID != "res-1-1767225600000" {
		t.Errorf("guid = %q", item.GUID)
	}
	if item.PubDate != "Thu, 01 Jan 2026 00:00:00 +0000" {
		t.Errorf("pubDate = %q", item.PubDate)
	}
	wantDesc := "price: 19.99 → 14.99; stock: out → in\n\nSummary: The price dropped and it is back in stock."
	if item.Description != wantDesc {
		t.Errorf("description = %q\nwant %q", item.Description, wantDesc)
	}
}

func TestFeedItemWithoutSummary(t *testing.T) {
	rec := &store.ChangeRecord{
		ID:          "rec-1",
		ChangesJSON: `[{"field":"status","old":"closed","new":"open"}]`,
		GUID:        "g1",
		PublishedAt: 1000,
	}
	out, err := render.Feed(testResource, []*store.ChangeRecord{rec})
	if err != nil {
		t.Fatal(err)
	}
	f := parse(t, out)
	if got := f.Channel.Items[0].Description; got != "status: closed → open" {
		t.Errorf("description = %q", got)
	}
	if strings.Contains(f.Channel.Items[0].Description, "Summary:") {
		t.Error("unenriched record must not carry a Summary section")
	}
}

func TestFeedTitleFallback(t *testing.T) {
	rec := &store.ChangeRecord{
		ID:          "rec-1",
		ChangesJSON: `[{"field":"price","old":"1","new":"2"},{"field":"stock","old":"a","new":"b"}]`,
		GUID:        "g1",
		PublishedAt: 1000,
	}
	out, err := render.Feed(testResource, []*store.ChangeRecord{rec})
	if err != nil {
		t.Fatal(err)
	}
	f := parse(t, out)
	if got := f.Channel.Items[0].Title; got != "Changed: price, stock" {
		t.Errorf("fallback title = %q", got)
	}
}

func TestFeedDeterministic(t *testing.T) {
	recs := []*store.ChangeRecord{
		{ID: "a", ChangesJSON: `[{"field":"x","old":"1","new":"2"}]`, GUID: "g-a", PublishedAt: 2000},
		{ID: "b", ChangesJSON: `[{"field":"y","old":"3","new":"4"}]`, GUID: "g-b", PublishedAt: 1000},
	}

	first, err := render.Feed(testResource, recs)
	if err != nil {
		t.Fatal(err)
	}
	// Rendering later must not change a single byte: the output depends only
	// on the resource and records, not on when it runs.
	time.Sleep(5 * time.Millisecond)
	second, err := render.Feed(testResource, recs)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same input produced different output")
	}
}

func TestFeedStripsMarkup(t *testing.T) {
	rec := &store.ChangeRecord{
		ID:          "rec-1",
		Title:       `<script>alert(1)</script>Bold move`,
		ChangesJSON: `[{"field":"note","old":"<b>old</b>","new":"<i>new</i>"}]`,
		Summary:     `<img src=x onerror=alert(1)>Looks fine.`,
		GUID:        "g1",
		PublishedAt: 1000,
	}
	out, err := render.Feed(testResource, []*store.ChangeRecord{rec})
	if err != nil {
		t.Fatal(err)
	}
	f := parse(t, out)
	item := f.Channel.Items[0]
	if item.Title != "Bold move" {
		t.Errorf("title = %q", item.Title)
	}
	if item.Description != "note: old → new\n\nSummary: Looks fine." {
		t.Errorf("description = %q", item.Description)
	}
}

func TestFeedBadChangesJSON(t *testing.T) {
	rec := &store.ChangeRecord{ID: "rec-1", ChangesJSON: `{not json`, GUID: "g1"}
	if _, err := render.Feed(testResource, []*store.ChangeRecord{rec}); err == nil {
		t.Fatal("expected error for malformed changes_json")
	}
}

func TestBody(t *testing.T) {
	changes := []summarize.Change{
		{Field: "status", Old: "closed", New: "open"},
	}
	if got := render.Body(changes, ""); got != "status: closed → open" {
		t.Errorf("Body = %q", got)
	}
	if got := render.Body(nil, "All quiet."); got != "\n\nSummary: All quiet." {
		t.Errorf("Body = %q", got)
	}
}
