// Package search maps raw search requests onto the two media providers and
// normalizes their responses into one canonical result shape.
package search

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"medialib/internal/media"
	"medialib/internal/platform/openlibrary"
	"medialib/internal/platform/screenapi"
)

// At most this many book documents are considered per search.
const bookSearchLimit = 50

type OpenLibraryClient interface {
	SearchTitles(ctx context.Context, title string, limit int) (*openlibrary.SearchResponse, error)
}

type ScreenAPIClient interface {
	SearchTitle(ctx context.Context, query string) (*screenapi.SearchTitleResponse, error)
}

type Service struct {
	books  OpenLibraryClient
	screen ScreenAPIClient
}

func NewService(books OpenLibraryClient, screen ScreenAPIClient) *Service {
	return &Service{books: books, screen: screen}
}

// Search normalizes a (type, query) request into canonical results. A
// provider failure degrades to an empty slice and a log line; the caller
// never sees an error. Unsupported types and empty queries yield nothing.
func (s *Service) Search(ctx context.Context, mediaType media.Type, query string) []media.SearchResult {
	if query == "" {
		return nil
	}
	switch mediaType {
	case media.TypeBook:
		return s.searchBooks(ctx, query)
	case media.TypeMovieTV:
		return s.searchScreen(ctx, query)
	default:
		return nil
	}
}

func (s *Service) searchBooks(ctx context.Context, query string) []media.SearchResult {
	res, err := s.books.SearchTitles(ctx, query, bookSearchLimit)
	if err != nil {
		log.Printf("search books failed: query=%q error=%v", query, err)
		return nil
	}

	// The limit query parameter is advisory; cap again in case the
	// provider hands back more.
	docs := res.Docs
	if len(docs) > bookSearchLimit {
		docs = docs[:bookSearchLimit]
	}

	var out []media.SearchResult
	for _, doc := range docs {
		// Incomplete entries are filtered, not repaired.
		if doc.CoverID == 0 || len(doc.AuthorNames) == 0 {
			continue
		}
		yearStart := ""
		if doc.FirstPublishYear > 0 {
			yearStart = strconv.Itoa(doc.FirstPublishYear)
		}
		out = append(out, media.SearchResult{
			Type:      media.TypeBook,
			ID:        strings.TrimPrefix(doc.Key, "/works/"),
			Title:     doc.Title,
			Authors:   strings.Join(doc.AuthorNames, ", "),
			YearStart: yearStart,
			YearEnd:   nil,
			ImageURL:  openlibrary.CoverURL(doc.CoverID),
		})
	}
	return out
}

func (s *Service) searchScreen(ctx context.Context, query string) []media.SearchResult {
	res, err := s.screen.SearchTitle(ctx, query)
	if err != nil {
		log.Printf("search titles failed: query=%q error=%v", query, err)
		return nil
	}

	var out []media.SearchResult
	for _, r := range res.Results {
		if r.Image == "" {
			continue
		}
		yearStart, yearEnd := parseYearSpan(r.Description)
		out = append(out, media.SearchResult{
			Type:      media.TypeMovieTV,
			ID:        r.ID,
			Title:     r.Title,
			YearStart: yearStart,
			YearEnd:   yearEnd,
			ImageURL:  r.Image,
		})
	}
	return out
}

// The search endpoint only exposes years inside the description text,
// e.g. "(2008)", "(2008–2013)" or "(2008– )" for a running series.
var yearSpanRe = regexp.MustCompile(`\((\d{4})(?:[–-]\s?(\d{4})?)?\)`)

func parseYearSpan(description string) (string, *string) {
	m := yearSpanRe.FindStringSubmatch(description)
	if m == nil {
		return "", nil
	}
	if m[2] == "" {
		return m[1], nil
	}
	end := m[2]
	return m[1], &end
}
