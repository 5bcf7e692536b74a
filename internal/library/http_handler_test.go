package library

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"medialib/internal/media"
	"medialib/internal/platform/screenapi"
	"medialib/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUserID = "1"

func newTestHandler(mOL *mockOLClient, mScreen *mockScreenClient, mRepo *mockRepo) *HTTPHandler {
	return NewHTTPHandler(NewService(mOL, mScreen, mRepo, IngestModeLenient), testUserID)
}

func TestHTTPHandler_AddItem(t *testing.T) {
	t.Run("adds a book from split fields", func(t *testing.T) {
		mOL := new(mockOLClient)
		mRepo := new(mockRepo)
		h := newTestHandler(mOL, new(mockScreenClient), mRepo)

		mOL.On("GetWork", mock.Anything, "OL893415W").Return(duneWork(), nil)
		mOL.On("GetAuthor", mock.Anything, "OL79034A").Return(nil, fmt.Errorf("down: %w", media.ErrProviderUnavailable))
		mRepo.On("InsertBook", mock.Anything, mock.Anything).Return(nil)
		mRepo.On("InsertBookImage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		mRepo.On("AddBookEntry", mock.Anything, testUserID, "OL893415W").Return(nil)

		r := testutil.NewRequest(http.MethodPost, "/library/items", map[string]string{"type": "Book", "id": "OL893415W"})
		w := httptest.NewRecorder()
		h.AddItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("adds from a legacy selection string", func(t *testing.T) {
		mScreen := new(mockScreenClient)
		mRepo := new(mockRepo)
		h := newTestHandler(new(mockOLClient), mScreen, mRepo)

		mScreen.On("GetTitle", mock.Anything, "tt0111161").Return(&screenapi.TitleDetails{
			ID:    "tt0111161",
			Title: "The Shawshank Redemption",
			Type:  "Movie",
			Year:  "1994",
		}, nil)
		mScreen.On("GetImages", mock.Anything, "tt0111161").Return(nil, fmt.Errorf("down: %w", media.ErrProviderUnavailable))
		mRepo.On("InsertMovieTV", mock.Anything, mock.Anything).Return(nil)
		mRepo.On("AddMovieTVEntry", mock.Anything, testUserID, "tt0111161").Return(nil)

		r := testutil.NewRequest(http.MethodPost, "/library/items", map[string]string{"selection": "Movie_TV:tt0111161"})
		w := httptest.NewRecorder()
		h.AddItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("rejects a malformed selection", func(t *testing.T) {
		h := newTestHandler(new(mockOLClient), new(mockScreenClient), new(mockRepo))

		r := testutil.NewRequest(http.MethodPost, "/library/items", map[string]string{"selection": "Book:OL1W:extra"})
		w := httptest.NewRecorder()
		h.AddItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("rejects an unsupported type", func(t *testing.T) {
		mRepo := new(mockRepo)
		h := newTestHandler(new(mockOLClient), new(mockScreenClient), mRepo)

		r := testutil.NewRequest(http.MethodPost, "/library/items", map[string]string{"type": "Podcast", "id": "x1"})
		w := httptest.NewRecorder()
		h.AddItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		mRepo.AssertNotCalled(t, "InsertBook", mock.Anything, mock.Anything)
	})

	t.Run("maps provider downtime to 502", func(t *testing.T) {
		mOL := new(mockOLClient)
		h := newTestHandler(mOL, new(mockScreenClient), new(mockRepo))

		mOL.On("GetWork", mock.Anything, "OL893415W").Return(nil, fmt.Errorf("timeout: %w", media.ErrProviderUnavailable))

		r := testutil.NewRequest(http.MethodPost, "/library/items", map[string]string{"type": "Book", "id": "OL893415W"})
		w := httptest.NewRecorder()
		h.AddItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadGateway, resp.Code)
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		h := newTestHandler(new(mockOLClient), new(mockScreenClient), new(mockRepo))

		r := httptest.NewRequest(http.MethodPost, "/library/items", nil)
		w := httptest.NewRecorder()
		h.AddItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestHTTPHandler_Library(t *testing.T) {
	t.Run("returns the merged view", func(t *testing.T) {
		mRepo := new(mockRepo)
		h := newTestHandler(new(mockOLClient), new(mockScreenClient), mRepo)

		mRepo.On("ListBooks", mock.Anything, testUserID).Return([]media.Book{{ID: "OL1W", Title: "Dune"}}, nil)
		mRepo.On("BookCover", mock.Anything, "OL1W").Return("https://img.example/dune.jpg", nil)
		mRepo.On("BookAuthors", mock.Anything, "OL1W").Return([]string{"Frank Herbert"}, nil)
		mRepo.On("ListMovieTV", mock.Anything, testUserID).Return([]media.MovieTV{}, nil)

		r := testutil.NewRequest(http.MethodGet, "/library", nil)
		w := httptest.NewRecorder()
		h.Library(w, r)

		resp := testutil.RecordHTTPResponse(w)
		require.Equal(t, http.StatusOK, resp.Code)

		data, ok := resp.Body["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 1)
		first := data[0].(map[string]any)
		assert.Equal(t, "Book", first["type"])
		assert.Equal(t, "https://img.example/dune.jpg", first["cover_url"])
	})

	t.Run("repository failure is a 500", func(t *testing.T) {
		mRepo := new(mockRepo)
		h := newTestHandler(new(mockOLClient), new(mockScreenClient), mRepo)

		mRepo.On("ListBooks", mock.Anything, testUserID).Return(nil, fmt.Errorf("db down"))

		r := testutil.NewRequest(http.MethodGet, "/library", nil)
		w := httptest.NewRecorder()
		h.Library(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

func TestHTTPHandler_GetItem(t *testing.T) {
	t.Run("missing item is a 404", func(t *testing.T) {
		mRepo := new(mockRepo)
		h := newTestHandler(new(mockOLClient), new(mockScreenClient), mRepo)

		mRepo.On("GetBook", mock.Anything, "OL404W").Return(media.Book{}, fmt.Errorf("book_data OL404W: %w", media.ErrMissingRelatedRow))

		r := testutil.NewRequest(http.MethodGet, "/library/items/Book/OL404W", nil)
		r.SetPathValue("type", "Book")
		r.SetPathValue("id", "OL404W")
		w := httptest.NewRecorder()
		h.GetItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("returns the enriched item", func(t *testing.T) {
		mRepo := new(mockRepo)
		h := newTestHandler(new(mockOLClient), new(mockScreenClient), mRepo)

		mRepo.On("GetBook", mock.Anything, "OL1W").Return(media.Book{ID: "OL1W", Title: "Dune"}, nil)
		mRepo.On("BookCover", mock.Anything, "OL1W").Return("https://img.example/dune.jpg", nil)
		mRepo.On("BookAuthors", mock.Anything, "OL1W").Return([]string{"Frank Herbert"}, nil)

		r := testutil.NewRequest(http.MethodGet, "/library/items/Book/OL1W", nil)
		r.SetPathValue("type", "Book")
		r.SetPathValue("id", "OL1W")
		w := httptest.NewRecorder()
		h.GetItem(w, r)

		resp := testutil.RecordHTTPResponse(w)
		require.Equal(t, http.StatusOK, resp.Code)
		data := resp.Body["data"].(map[string]any)
		assert.Equal(t, "Dune", data["title"])
	})
}
