package store

import (
	"context"
	"testing"
	"time"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

func seedItems(t *testing.T, db *DB) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)

	cornell := newItem("gd1977-05-08.sbd.miller.flac16")
	cornell.CreatedAt = base
	insertItem(t, db, cornell)

	winterland := newItem("gd1978-12-31.sbd.winterland")
	winterland.Metadata = domain.RawJSON(`{"identifier":"gd1978-12-31.sbd.winterland","title":"Closing of Winterland","venue":"Winterland Arena","year":"1978","creator":"Grateful Dead"}`)
	winterland.Title = "Closing of Winterland"
	winterland.Venue = "Winterland Arena"
	winterland.Year = "1978"
	rating := 4.2
	winterland.AvgRating = &rating
	winterland.CreatedAt = base.Add(time.Minute)
	insertItem(t, db, winterland)

	phil := newItem("phil2001-04-15")
	phil.Metadata = domain.RawJSON(`{"identifier":"phil2001-04-15","title":"Phil Lesh and Friends","venue":"Warfield","year":"2001","creator":"Phil Lesh and Friends"}`)
	phil.Title = "Phil Lesh and Friends"
	phil.Venue = "Warfield"
	phil.Year = "2001"
	phil.Creator = "Phil Lesh and Friends"
	phil.AvgRating = nil
	phil.CreatedAt = base.Add(2 * time.Minute)
	insertItem(t, db, phil)
}

func TestDB_ListItemsOrderAndPaging(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedItems(t, db)
	ctx := context.Background()

	items, total, err := db.ListItems(ctx, 1, 2, ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items on first page, got %d", len(items))
	}
	if items[0].Identifier != "phil2001-04-15" {
		t.Errorf("Expected newest first, got %s", items[0].Identifier)
	}

	items, _, err = db.ListItems(ctx, 2, 2, ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Identifier != "gd1977-05-08.sbd.miller.flac16" {
		t.Errorf("Unexpected second page %v", items)
	}

	items, _, err = db.ListItems(ctx, 9, 2, ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(items))
	}
}

func TestDB_ListItemsSubstringFilters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedItems(t, db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ItemFilter
		want   int
	}{
		{"search term", ItemFilter{SearchTerm: "winterland"}, 1},
		{"venue", ItemFilter{Venue: "Barton"}, 1},
		{"creator matches blob", ItemFilter{Creator: "Grateful Dead"}, 2},
		{"quoted rating prefix", ItemFilter{MinRating: "4.8"}, 1},
		{"start year prefix", ItemFilter{StartYear: "1977"}, 1},
		{"start and end must both appear", ItemFilter{StartYear: "1977", EndYear: "1978"}, 0},
		{"no match", ItemFilter{SearchTerm: "Fillmore"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := db.ListItems(ctx, 1, 20, tt.filter)
			if err != nil {
				t.Fatalf("ListItems failed: %v", err)
			}
			if total != tt.want {
				t.Errorf("Expected %d matches, got %d", tt.want, total)
			}
		})
	}
}

func TestDB_ListItemsStructuredFilters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedItems(t, db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ItemFilter
		want   int
	}{
		{"year range", ItemFilter{StartYear: "1977", EndYear: "1978", Structured: true}, 2},
		{"min rating", ItemFilter{MinRating: "4.5", Structured: true}, 0},
		{"min rating lower", ItemFilter{MinRating: "4", Structured: true}, 1},
		{"creator column", ItemFilter{Creator: "Phil", Structured: true}, 1},
		{"search term on title", ItemFilter{SearchTerm: "Barton", Structured: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := db.ListItems(ctx, 1, 20, tt.filter)
			if err != nil {
				t.Fatalf("ListItems failed: %v", err)
			}
			if total != tt.want {
				t.Errorf("Expected %d matches, got %d", tt.want, total)
			}
		})
	}
}

func TestDB_ItemIdentifiers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedItems(t, db)

	found, err := db.ItemIdentifiers(context.Background(), []string{"phil2001-04-15", "unknown"})
	if err != nil {
		t.Fatalf("ItemIdentifiers failed: %v", err)
	}
	if !found["phil2001-04-15"] || found["unknown"] {
		t.Errorf("Unexpected lookup result %v", found)
	}
}

func TestDB_LibraryStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedItems(t, db)
	ctx := context.Background()

	uow, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := uow.MarkItemBackedUp(ctx, "phil2001-04-15", time.Now().UTC()); err != nil {
		t.Fatalf("MarkItemBackedUp failed: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	stats, err := db.LibraryStats(ctx, 10)
	if err != nil {
		t.Fatalf("LibraryStats failed: %v", err)
	}
	if stats.TotalItems != 3 || stats.BackedUpItems != 1 {
		t.Errorf("Expected 3 items with 1 backed up, got %d and %d", stats.TotalItems, stats.BackedUpItems)
	}
	if len(stats.Years) != 3 {
		t.Errorf("Expected 3 distinct years, got %v", stats.Years)
	}
	if len(stats.Creators) != 2 || stats.Creators[0].Creator != "Grateful Dead" || stats.Creators[0].Count != 2 {
		t.Errorf("Unexpected creator stats %v", stats.Creators)
	}
}
