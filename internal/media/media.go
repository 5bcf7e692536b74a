package media

import (
	"fmt"
	"strings"
)

// Type discriminates the two supported media categories. The string values
// match what the search form submits.
type Type string

const (
	TypeBook    Type = "Book"
	TypeMovieTV Type = "Movie_TV"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeBook:
		return TypeBook, nil
	case TypeMovieTV:
		return TypeMovieTV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// ParseSelection splits a "Type:ID" selection string as submitted by the
// search results form. Anything with more than one separator is rejected.
func ParseSelection(s string) (Type, string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid selection %q", s)
	}
	t, err := ParseType(parts[0])
	if err != nil {
		return "", "", err
	}
	return t, parts[1], nil
}

// SearchResult is the canonical search-result shape shared by both providers.
type SearchResult struct {
	Type      Type    `json:"type"`
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Authors   string  `json:"authors,omitempty"` // ", "-joined, books only
	YearStart string  `json:"year_start"`
	YearEnd   *string `json:"year_end"` // nil for books and one-off titles
	ImageURL  string  `json:"image_url"`
}

// Book is the primary item record for a book, as persisted in book_data.
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Series      string `json:"series,omitempty"`
	PublishDate string `json:"publish_date"` // YYYY-MM-DD, empty when unknown
}

// MovieTV is the primary item record for a movie or TV title.
type MovieTV struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Kind      string  `json:"kind"` // provider type label, e.g. "Movie", "TVSeries"
	Plot      string  `json:"plot"`
	StartDate string  `json:"start_date"`         // YYYY-MM-DD, empty when unknown
	EndDate   *string `json:"end_date,omitempty"` // nil while the series is ongoing
}

type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// LibraryItem is one enriched row of a user's library view.
type LibraryItem struct {
	Type        Type     `json:"type"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DateStart   string   `json:"date_start"`
	DateEnd     *string  `json:"date_end,omitempty"` // nil = ongoing or not applicable
	CoverURL    string   `json:"cover_url"`
	Authors     []string `json:"authors,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}
