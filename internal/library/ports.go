package library

import (
	"context"

	"medialib/internal/media"
)

// Repository is the persistence boundary of the ingestion pipeline and the
// reader. Insert methods are plain inserts: a primary-key collision comes
// back wrapped in media.ErrDuplicateItem so the pipeline can decide what to
// do with it. Cover lookups return media.ErrMissingRelatedRow when the item
// has no image rows.
type Repository interface {
	InsertBook(ctx context.Context, b *media.Book) error
	InsertAuthor(ctx context.Context, a *media.Author) error
	LinkBookAuthor(ctx context.Context, bookID, authorID string) error
	InsertBookImage(ctx context.Context, bookID, resourceURL string) error
	AddBookEntry(ctx context.Context, userID, bookID string) error

	InsertMovieTV(ctx context.Context, m *media.MovieTV) error
	InsertGenre(ctx context.Context, itemID, genre string) error
	InsertMovieTVImage(ctx context.Context, itemID, resourceURL string) error
	AddMovieTVEntry(ctx context.Context, userID, itemID string) error

	ListBooks(ctx context.Context, userID string) ([]media.Book, error)
	GetBook(ctx context.Context, bookID string) (media.Book, error)
	BookCover(ctx context.Context, bookID string) (string, error)
	BookAuthors(ctx context.Context, bookID string) ([]string, error)

	ListMovieTV(ctx context.Context, userID string) ([]media.MovieTV, error)
	GetMovieTV(ctx context.Context, itemID string) (media.MovieTV, error)
	MovieTVCover(ctx context.Context, itemID string) (string, error)
	MovieTVGenres(ctx context.Context, itemID string) ([]string, error)

	// WithTx runs fn against a transaction-scoped view of the repository.
	// fn returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
