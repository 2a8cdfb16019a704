package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/alfredjeanlab/sortgate/internal/client"
	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/ui"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// formatSource renders a source tag, with the snapshot age when the data
// came from the cache.
func formatSource(source model.Source, lastUpdated *time.Time) string {
	s := ui.RenderSource(source.String())
	if lastUpdated != nil {
		s += " " + ui.RenderMuted("(as of "+lastUpdated.Local().Format("2006-01-02 15:04:05")+")")
	}
	return s
}

// recordColumns returns the column names found across records, with "id"
// and "name" first and the rest sorted.
func recordColumns(records []model.Record) []string {
	seen := map[string]bool{}
	var rest []string
	for _, r := range records {
		for k := range r {
			if seen[k] {
				continue
			}
			seen[k] = true
			if k != "id" && k != "name" {
				rest = append(rest, k)
			}
		}
	}
	slices.Sort(rest)
	var cols []string
	for _, k := range []string{"id", "name"} {
		if seen[k] {
			cols = append(cols, k)
		}
	}
	return append(cols, rest...)
}

func printRecordsTable(w io.Writer, resp *client.RecordsResponse, noun string) {
	cols := recordColumns(resp.Items)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(cols) > 0 {
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	}
	for _, r := range resp.Items {
		vals := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok && v != nil {
				vals[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d %s from %s\n", len(resp.Items), noun, formatSource(resp.Source, resp.LastUpdated))
}

func printStatus(w io.Writer, st *client.StatusResponse) {
	db := ui.RenderOK("online")
	if !st.DatabaseOnline {
		db = ui.RenderError("offline")
	}
	cache := ui.RenderMuted("never")
	if st.CacheLastUpdated != nil {
		cache = st.CacheLastUpdated.Local().Format("2006-01-02 15:04:05")
	}
	pending := fmt.Sprintf("%d", st.PendingPostsCount)
	if st.PendingPostsCount > 0 {
		pending = ui.RenderWarn(pending)
	}

	fmt.Fprintln(w, "Gateway Status")
	fmt.Fprintf(w, "  Database:      %s\n", db)
	fmt.Fprintf(w, "  Cache updated: %s\n", cache)
	fmt.Fprintf(w, "  Cached items:  %d\n", st.CachedItemsCount)
	fmt.Fprintf(w, "  Cached bins:   %d\n", st.CachedTrashBinsCount)
	fmt.Fprintf(w, "  Pending posts: %s\n", pending)
}

func printSelection(w io.Writer, resp *client.SelectionResponse) {
	if resp.Queued() {
		fmt.Fprintf(w, "%s %s at %s (pending %s)\n", ui.RenderWarn("queued"), resp.Item, resp.Location, resp.PendingID)
		return
	}
	times := int64(0)
	if resp.TimesSelected != nil {
		times = *resp.TimesSelected
	}
	fmt.Fprintf(w, "%s %s at %s, selected %d times\n", ui.RenderOK("recorded"), resp.Item, resp.Location, times)
}
