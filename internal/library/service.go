// Package library implements the ingestion pipeline that turns a selected
// search result into persisted rows, and the reader that reconstitutes a
// user's library view from them.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"medialib/internal/media"
	"medialib/internal/platform/openlibrary"
	"medialib/internal/platform/screenapi"
)

// IngestMode controls the pipeline's partial-failure policy.
type IngestMode string

const (
	// IngestModeLenient isolates failures per row-group: a failed insert is
	// logged and every sibling step still runs, so partial state is possible.
	// This mirrors the behavior the service always had.
	IngestModeLenient IngestMode = "lenient"
	// IngestModeStrict wraps the whole ingestion in one transaction and
	// rolls back on the first persistence error.
	IngestModeStrict IngestMode = "strict"
)

func ParseIngestMode(s string) (IngestMode, error) {
	switch IngestMode(s) {
	case IngestModeLenient, IngestModeStrict:
		return IngestMode(s), nil
	case "":
		return IngestModeLenient, nil
	default:
		return "", fmt.Errorf("unknown ingest mode: %q", s)
	}
}

type OpenLibraryClient interface {
	GetWork(ctx context.Context, workKey string) (*openlibrary.WorkDetails, error)
	GetAuthor(ctx context.Context, authorKey string) (*openlibrary.AuthorDetails, error)
}

type ScreenAPIClient interface {
	GetTitle(ctx context.Context, id string) (*screenapi.TitleDetails, error)
	GetImages(ctx context.Context, id string) (*screenapi.ImagesResponse, error)
}

type Service struct {
	books  OpenLibraryClient
	screen ScreenAPIClient
	repo   Repository
	mode   IngestMode
}

func NewService(books OpenLibraryClient, screen ScreenAPIClient, repo Repository, mode IngestMode) *Service {
	if mode == "" {
		mode = IngestModeLenient
	}
	return &Service{books: books, screen: screen, repo: repo, mode: mode}
}

// Ingest fetches the full detail record for the selected item and persists
// it along with its related entities and the user's library association.
// An unsupported type fails before any fetch or write happens.
func (s *Service) Ingest(ctx context.Context, mediaType media.Type, itemID, userID string) error {
	switch mediaType {
	case media.TypeBook:
		return s.ingestBook(ctx, itemID, userID)
	case media.TypeMovieTV:
		return s.ingestMovieTV(ctx, itemID, userID)
	default:
		return fmt.Errorf("ingest: %w: %q", media.ErrInvalidType, mediaType)
	}
}

func (s *Service) ingestBook(ctx context.Context, itemID, userID string) error {
	work, err := s.books.GetWork(ctx, itemID)
	if err != nil {
		return media.WrapProvider("openlibrary", "get work", err)
	}

	// The client follows at most one work redirect; persist under the
	// canonical key it landed on.
	id := strings.TrimPrefix(work.Key, "/works/")
	if id == "" {
		id = itemID
	}

	publishDate, err := media.NormalizeDate(work.FirstPublishDate)
	if err != nil {
		log.Printf("ingest book: item=%s bad publish date: %v", id, err)
	}

	book := &media.Book{
		ID:          id,
		Title:       work.Title,
		Description: textValue(work.Description),
		Series:      work.SeriesName,
		PublishDate: publishDate,
	}

	// One secondary fetch per author reference. A failed fetch drops that
	// author and keeps going.
	var authors []media.Author
	for _, ref := range work.Authors {
		key := strings.TrimPrefix(ref.Author.Key, "/authors/")
		if key == "" {
			continue
		}
		details, err := s.books.GetAuthor(ctx, key)
		if err != nil {
			log.Printf("ingest book: item=%s author=%s fetch failed: %v", id, key, err)
			continue
		}
		authors = append(authors, media.Author{
			ID:   key,
			Name: details.Name,
			Bio:  textValue(details.Bio),
		})
	}

	images := make([]string, 0, len(work.Covers))
	for _, coverID := range work.Covers {
		if coverID > 0 {
			images = append(images, openlibrary.CoverURL(coverID))
		}
	}

	if s.mode == IngestModeStrict {
		return s.repo.WithTx(ctx, func(repo Repository) error {
			return s.persistBook(ctx, repo, book, authors, images, userID)
		})
	}
	return s.persistBook(ctx, s.repo, book, authors, images, userID)
}

func (s *Service) persistBook(ctx context.Context, repo Repository, book *media.Book, authors []media.Author, images []string, userID string) error {
	if err := repo.InsertBook(ctx, book); err != nil {
		if fail := s.stepFailed("book_data", book.ID, err); fail != nil {
			return fail
		}
	}
	for i := range authors {
		a := &authors[i]
		if err := repo.InsertAuthor(ctx, a); err != nil {
			if fail := s.stepFailed("authors", a.ID, err); fail != nil {
				return fail
			}
		}
		if err := repo.LinkBookAuthor(ctx, book.ID, a.ID); err != nil {
			if fail := s.stepFailed("book_authors", a.ID, err); fail != nil {
				return fail
			}
		}
	}
	for _, u := range images {
		if err := repo.InsertBookImage(ctx, book.ID, u); err != nil {
			if fail := s.stepFailed("book_images", book.ID, err); fail != nil {
				return fail
			}
		}
	}
	// The association always gets its attempt, even when the item row
	// already existed.
	if err := repo.AddBookEntry(ctx, userID, book.ID); err != nil {
		return fmt.Errorf("add book entry: %w", err)
	}
	return nil
}

func (s *Service) ingestMovieTV(ctx context.Context, itemID, userID string) error {
	title, err := s.screen.GetTitle(ctx, itemID)
	if err != nil {
		return media.WrapProvider("screenapi", "get title", err)
	}

	startDate, err := media.NormalizeDate(title.Year)
	if err != nil {
		log.Printf("ingest movie_tv: item=%s bad year: %v", itemID, err)
	}

	item := &media.MovieTV{
		ID:        title.ID,
		Title:     title.Title,
		Kind:      title.Type,
		Plot:      title.Plot,
		StartDate: startDate,
	}
	if item.ID == "" {
		item.ID = itemID
	}
	if title.TVSeriesInfo != nil && title.TVSeriesInfo.YearEnd != "" {
		endDate, err := media.NormalizeDate(title.TVSeriesInfo.YearEnd)
		if err != nil {
			log.Printf("ingest movie_tv: item=%s bad end year: %v", item.ID, err)
		} else {
			item.EndDate = &endDate
		}
	}

	genres := make([]string, 0, len(title.GenreList))
	for _, g := range title.GenreList {
		if g.Value != "" {
			genres = append(genres, g.Value)
		}
	}

	// Image list is a secondary fetch; losing it degrades to no image rows.
	var images []string
	imgRes, err := s.screen.GetImages(ctx, item.ID)
	if err != nil {
		log.Printf("ingest movie_tv: item=%s images fetch failed: %v", item.ID, err)
	} else {
		for _, img := range imgRes.Items {
			if img.Image != "" {
				images = append(images, img.Image)
			}
		}
	}

	if s.mode == IngestModeStrict {
		return s.repo.WithTx(ctx, func(repo Repository) error {
			return s.persistMovieTV(ctx, repo, item, genres, images, userID)
		})
	}
	return s.persistMovieTV(ctx, s.repo, item, genres, images, userID)
}

func (s *Service) persistMovieTV(ctx context.Context, repo Repository, item *media.MovieTV, genres, images []string, userID string) error {
	if err := repo.InsertMovieTV(ctx, item); err != nil {
		if fail := s.stepFailed("movie_tv_data", item.ID, err); fail != nil {
			return fail
		}
	}
	for _, g := range genres {
		if err := repo.InsertGenre(ctx, item.ID, g); err != nil {
			if fail := s.stepFailed("movie_tv_genres", item.ID, err); fail != nil {
				return fail
			}
		}
	}
	for _, u := range images {
		if err := repo.InsertMovieTVImage(ctx, item.ID, u); err != nil {
			if fail := s.stepFailed("movie_tv_images", item.ID, err); fail != nil {
				return fail
			}
		}
	}
	if err := repo.AddMovieTVEntry(ctx, userID, item.ID); err != nil {
		return fmt.Errorf("add movie_tv entry: %w", err)
	}
	return nil
}

// stepFailed applies the partial-failure policy to one row-group. In strict
// mode any error, duplicates included, aborts the transaction. In lenient
// mode the error is logged and siblings keep running.
func (s *Service) stepFailed(table, id string, err error) error {
	if s.mode == IngestModeStrict {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	if errors.Is(err, media.ErrDuplicateItem) {
		log.Printf("ingest: table=%s id=%s already present, skipping", table, id)
	} else {
		log.Printf("ingest: table=%s id=%s insert failed: %v", table, id, err)
	}
	return nil
}

// ReadLibrary reconstitutes the user's full library: books first, then
// movies/TV, each list in insertion order. A row whose enrichment fails
// (most commonly no cover image) is logged and dropped, never fatal.
func (s *Service) ReadLibrary(ctx context.Context, userID string) ([]media.LibraryItem, error) {
	books, err := s.repo.ListBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	out := make([]media.LibraryItem, 0, len(books))
	for i := range books {
		item, err := s.enrichBook(ctx, &books[i])
		if err != nil {
			log.Printf("read library: user=%s book=%s dropped: %v", userID, books[i].ID, err)
			continue
		}
		out = append(out, item)
	}

	titles, err := s.repo.ListMovieTV(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list movie_tv: %w", err)
	}
	for i := range titles {
		item, err := s.enrichMovieTV(ctx, &titles[i])
		if err != nil {
			log.Printf("read library: user=%s movie_tv=%s dropped: %v", userID, titles[i].ID, err)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// GetItem returns a single enriched library item for the archive page.
func (s *Service) GetItem(ctx context.Context, mediaType media.Type, itemID string) (media.LibraryItem, error) {
	switch mediaType {
	case media.TypeBook:
		book, err := s.repo.GetBook(ctx, itemID)
		if err != nil {
			return media.LibraryItem{}, err
		}
		return s.enrichBook(ctx, &book)
	case media.TypeMovieTV:
		title, err := s.repo.GetMovieTV(ctx, itemID)
		if err != nil {
			return media.LibraryItem{}, err
		}
		return s.enrichMovieTV(ctx, &title)
	default:
		return media.LibraryItem{}, fmt.Errorf("get item: %w: %q", media.ErrInvalidType, mediaType)
	}
}

func (s *Service) enrichBook(ctx context.Context, b *media.Book) (media.LibraryItem, error) {
	cover, err := s.repo.BookCover(ctx, b.ID)
	if err != nil {
		return media.LibraryItem{}, err
	}
	authors, err := s.repo.BookAuthors(ctx, b.ID)
	if err != nil {
		return media.LibraryItem{}, err
	}
	return media.LibraryItem{
		Type:        media.TypeBook,
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		DateStart:   b.PublishDate,
		CoverURL:    cover,
		Authors:     authors,
	}, nil
}

func (s *Service) enrichMovieTV(ctx context.Context, m *media.MovieTV) (media.LibraryItem, error) {
	cover, err := s.repo.MovieTVCover(ctx, m.ID)
	if err != nil {
		return media.LibraryItem{}, err
	}
	genres, err := s.repo.MovieTVGenres(ctx, m.ID)
	if err != nil {
		return media.LibraryItem{}, err
	}
	return media.LibraryItem{
		Type:        media.TypeMovieTV,
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Plot,
		DateStart:   m.StartDate,
		DateEnd:     m.EndDate,
		CoverURL:    cover,
		Genres:      genres,
	}, nil
}

// Both description and bio arrive as either a bare string or a typed
// {type, value} object.
func textValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if m, ok := v.(map[string]any); ok {
		if s, ok := m["value"].(string); ok {
			return s
		}
	}
	return ""
}
