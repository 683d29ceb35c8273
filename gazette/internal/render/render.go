// Package render produces RSS 2.0 documents from change records using
// encoding/xml.
//
// Rendering is deterministic: the same resource and record slice always
// yields byte-identical output, so rendered feeds can be cached and compared.
package render

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/feedwatch/gazette/internal/store"
	"github.com/hazyhaar/feedwatch/summarize"
)

// strict strips all markup. Summaries come from an external generator and
// field values from external producers, so nothing they contain may reach
// the feed as markup.
var strict = bluemonday.StrictPolicy()

type rssRoot struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Generator     string    `xml:"generator"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link,omitempty"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
	Description string  `xml:"description"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Feed renders the records of a resource as an RSS 2.0 document. Output is a
// pure function of the inputs: lastBuildDate is the newest record's
// publication time, never the wall clock, so unchanged input renders
// byte-identically. An empty record slice yields a structurally valid channel
// with zero items and no lastBuildDate.
func Feed(res *store.Resource, records []*store.ChangeRecord) ([]byte, error) {
	ch := rssChannel{
		Title:       clean(res.Name),
		Link:        res.URL,
		Description: clean(res.Description),
		Generator:   "feedwatch",
		Items:       make([]rssItem, 0, len(records)),
	}
	if newest := newestPublished(records); newest != 0 {
		ch.LastBuildDate = time.UnixMilli(newest).UTC().Format(time.RFC1123Z)
	}

	for _, rec := range records {
		item, err := renderItem(res, rec)
		if err != nil {
			return nil, err
		}
		ch.Items = append(ch.Items, item)
	}

	out, err := xml.MarshalIndent(rssRoot{Version: "2.0", Channel: ch}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: marshal feed: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func newestPublished(records []*store.ChangeRecord) int64 {
	var newest int64
	for _, rec := range records {
		if rec.PublishedAt > newest {
			newest = rec.PublishedAt
		}
	}
	return newest
}

func renderItem(res *store.Resource, rec *store.ChangeRecord) (rssItem, error) {
	var changes []summarize.Change
	if err := json.Unmarshal([]byte(rec.ChangesJSON), &changes); err != nil {
		return rssItem{}, fmt.Errorf("render: record %s changes: %w", rec.ID, err)
	}

	return rssItem{
		Title:       clean(itemTitle(rec, changes)),
		Link:        res.URL,
		GUID:        rssGUID{IsPermaLink: false, Value: rec.GUID},
		PubDate:     time.UnixMilli(rec.PublishedAt).UTC().Format(time.RFC1123Z),
		Description: Body(changes, rec.Summary),
	}, nil
}

// Body builds an item description from change clauses and an optional
// summary. Clauses keep their submission order; a present summary is
// appended after a blank line.
func Body(changes []summarize.Change, summary string) string {
	clauses := make([]string, 0, len(changes))
	for _, c := range changes {
		clauses = append(clauses, fmt.Sprintf("%s: %s → %s", clean(c.Field), clean(c.Old), clean(c.New)))
	}
	body := strings.Join(clauses, "; ")
	if summary != "" {
		body += "\n\nSummary: " + clean(summary)
	}
	return body
}

// itemTitle falls back to the changed field names when no title was given.
func itemTitle(rec *store.ChangeRecord, changes []summarize.Change) string {
	if rec.Title != "" {
		return rec.Title
	}
	if len(changes) == 0 {
		return "Change detected"
	}
	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	return "Changed: " + strings.Join(fields, ", ")
}

// clean strips markup and resolves entities so the XML encoder escapes
// plain text exactly once.
func clean(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}
