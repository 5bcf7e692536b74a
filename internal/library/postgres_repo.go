package library

import (
	"context"
	"errors"
	"fmt"

	"medialib/internal/media"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repository code serves lenient (pool) and strict (transaction) ingestion.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	db   querier
	pool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: pool, pool: pool}
}

func (r *PostgresRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return errors.New("nested transaction")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresRepo{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// uniqueViolation is the Postgres error code for a duplicate key.
const uniqueViolation = "23505"

func mapInsertErr(err error, table, id string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s %s: %w", table, id, media.ErrDuplicateItem)
	}
	return fmt.Errorf("insert %s %s: %w", table, id, err)
}

func (r *PostgresRepo) InsertBook(ctx context.Context, b *media.Book) error {
	const sql = `
		INSERT INTO book_data (id, title, description, series, publish_date)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, sql, b.ID, b.Title, b.Description, b.Series, b.PublishDate)
	return mapInsertErr(err, "book_data", b.ID)
}

func (r *PostgresRepo) InsertAuthor(ctx context.Context, a *media.Author) error {
	const sql = `
		INSERT INTO authors (id, name, bio)
		VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, sql, a.ID, a.Name, a.Bio)
	return mapInsertErr(err, "authors", a.ID)
}

func (r *PostgresRepo) LinkBookAuthor(ctx context.Context, bookID, authorID string) error {
	const sql = `
		INSERT INTO book_authors (book_id, author_id)
		VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, sql, bookID, authorID)
	return mapInsertErr(err, "book_authors", bookID+"/"+authorID)
}

func (r *PostgresRepo) InsertBookImage(ctx context.Context, bookID, resourceURL string) error {
	const sql = `
		INSERT INTO book_images (book_id, resource_url)
		VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, sql, bookID, resourceURL)
	return mapInsertErr(err, "book_images", bookID)
}

func (r *PostgresRepo) AddBookEntry(ctx context.Context, userID, bookID string) error {
	const sql = `
		INSERT INTO user_books_list_categories (user_id, book_id)
		VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, sql, userID, bookID)
	return mapInsertErr(err, "user_books_list_categories", bookID)
}

func (r *PostgresRepo) InsertMovieTV(ctx context.Context, m *media.MovieTV) error {
	const sql = `
		INSERT INTO movie_tv_data (id, title, kind, plot, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, sql, m.ID, m.Title, m.Kind, m.Plot, m.StartDate, m.EndDate)
	return mapInsertErr(err, "movie_tv_data", m.ID)
}

func (r *PostgresRepo) InsertGenre(ctx context.Context, itemID, genre string) error {
	const sql = `
		INSERT INTO movie_tv_genres (movie_tv_id, genre)
		VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, sql, itemID, genre)
	return mapInsertErr(err, "movie_tv_genres", itemID)
}

func (r *PostgresRepo) InsertMovieTVImage(ctx context.Context, itemID, resourceURL string) error {
	const sql = `
		INSERT INTO movie_tv_images (movie_tv_id, resource_url)
		VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, sql, itemID, resourceURL)
	return mapInsertErr(err, "movie_tv_images", itemID)
}

func (r *PostgresRepo) AddMovieTVEntry(ctx context.Context, userID, itemID string) error {
	const sql = `
		INSERT INTO user_movie_tv_list_categories (user_id, movie_tv_id)
		VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, sql, userID, itemID)
	return mapInsertErr(err, "user_movie_tv_list_categories", itemID)
}

// ListBooks returns the user's books in the order they were added to the
// library (by association row id), so output is stable across reads.
func (r *PostgresRepo) ListBooks(ctx context.Context, userID string) ([]media.Book, error) {
	const sql = `
		SELECT b.id, b.title, b.description, b.series, b.publish_date
		FROM user_books_list_categories ub
		JOIN book_data b ON b.id = ub.book_id
		WHERE ub.user_id = $1
		ORDER BY ub.id`
	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []media.Book
	for rows.Next() {
		var b media.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Series, &b.PublishDate); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *PostgresRepo) GetBook(ctx context.Context, bookID string) (media.Book, error) {
	const sql = `
		SELECT id, title, description, series, publish_date
		FROM book_data
		WHERE id = $1`
	var b media.Book
	err := r.db.QueryRow(ctx, sql, bookID).Scan(&b.ID, &b.Title, &b.Description, &b.Series, &b.PublishDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return media.Book{}, fmt.Errorf("book_data %s: %w", bookID, media.ErrMissingRelatedRow)
	}
	return b, err
}

// BookCover returns the first image ever stored for the book, which the
// system treats as the canonical cover.
func (r *PostgresRepo) BookCover(ctx context.Context, bookID string) (string, error) {
	const sql = `
		SELECT resource_url
		FROM book_images
		WHERE book_id = $1
		ORDER BY id
		LIMIT 1`
	var u string
	err := r.db.QueryRow(ctx, sql, bookID).Scan(&u)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("book_images %s: %w", bookID, media.ErrMissingRelatedRow)
	}
	return u, err
}

func (r *PostgresRepo) BookAuthors(ctx context.Context, bookID string) ([]string, error) {
	const sql = `
		SELECT a.name
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = $1
		ORDER BY a.name`
	rows, err := r.db.Query(ctx, sql, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *PostgresRepo) ListMovieTV(ctx context.Context, userID string) ([]media.MovieTV, error) {
	const sql = `
		SELECT m.id, m.title, m.kind, m.plot, m.start_date, m.end_date
		FROM user_movie_tv_list_categories um
		JOIN movie_tv_data m ON m.id = um.movie_tv_id
		WHERE um.user_id = $1
		ORDER BY um.id`
	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []media.MovieTV
	for rows.Next() {
		var m media.MovieTV
		if err := rows.Scan(&m.ID, &m.Title, &m.Kind, &m.Plot, &m.StartDate, &m.EndDate); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *PostgresRepo) GetMovieTV(ctx context.Context, itemID string) (media.MovieTV, error) {
	const sql = `
		SELECT id, title, kind, plot, start_date, end_date
		FROM movie_tv_data
		WHERE id = $1`
	var m media.MovieTV
	err := r.db.QueryRow(ctx, sql, itemID).Scan(&m.ID, &m.Title, &m.Kind, &m.Plot, &m.StartDate, &m.EndDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return media.MovieTV{}, fmt.Errorf("movie_tv_data %s: %w", itemID, media.ErrMissingRelatedRow)
	}
	return m, err
}

func (r *PostgresRepo) MovieTVCover(ctx context.Context, itemID string) (string, error) {
	const sql = `
		SELECT resource_url
		FROM movie_tv_images
		WHERE movie_tv_id = $1
		ORDER BY id
		LIMIT 1`
	var u string
	err := r.db.QueryRow(ctx, sql, itemID).Scan(&u)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("movie_tv_images %s: %w", itemID, media.ErrMissingRelatedRow)
	}
	return u, err
}

func (r *PostgresRepo) MovieTVGenres(ctx context.Context, itemID string) ([]string, error) {
	const sql = `
		SELECT genre
		FROM movie_tv_genres
		WHERE movie_tv_id = $1
		ORDER BY id`
	rows, err := r.db.Query(ctx, sql, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
