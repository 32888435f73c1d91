package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"booklibrary/internal/catalog"
	"booklibrary/internal/platform/openlibrary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOLClient struct {
	mock.Mock
}

func (m *mockOLClient) GetEdition(ctx context.Context, isbn string) (*openlibrary.Edition, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openlibrary.Edition), args.Error(1)
}

func (m *mockOLClient) GetAuthor(ctx context.Context, authorKey string) (*openlibrary.AuthorDetails, error) {
	args := m.Called(ctx, authorKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openlibrary.AuthorDetails), args.Error(1)
}

func ptr(s string) *string { return &s }

func edition(title *string, keys ...string) *openlibrary.Edition {
	e := &openlibrary.Edition{Title: title}
	for _, k := range keys {
		e.Authors = append(e.Authors, openlibrary.AuthorRef{Key: ptr(k)})
	}
	return e
}

func author(name string) *openlibrary.AuthorDetails {
	return &openlibrary.AuthorDetails{Name: ptr(name)}
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("single author", func(t *testing.T) {
		client := new(mockOLClient)
		client.On("GetEdition", mock.Anything, "978-0451524935").
			Return(edition(ptr("1984"), "/authors/OL118077A"), nil)
		client.On("GetAuthor", mock.Anything, "/authors/OL118077A").
			Return(author("George Orwell"), nil)

		meta, err := NewResolver(client, Config{}).Resolve(ctx, "978-0451524935")

		require.NoError(t, err)
		assert.Equal(t, catalog.Metadata{Title: "1984", Author: "George Orwell"}, meta)
		client.AssertExpectations(t)
	})

	t.Run("authors joined in reference order", func(t *testing.T) {
		client := new(mockOLClient)
		client.On("GetEdition", mock.Anything, "978-0060853983").
			Return(edition(ptr("Good Omens"), "/authors/OL25712A", "/authors/OL53305A"), nil)
		client.On("GetAuthor", mock.Anything, "/authors/OL25712A").Return(author("Terry Pratchett"), nil)
		client.On("GetAuthor", mock.Anything, "/authors/OL53305A").Return(author("Neil Gaiman"), nil)

		meta, err := NewResolver(client, Config{MaxConcurrentAuthors: 2}).Resolve(ctx, "978-0060853983")

		require.NoError(t, err)
		assert.Equal(t, "Terry Pratchett, Neil Gaiman", meta.Author)
	})

	t.Run("failed author lookup is dropped", func(t *testing.T) {
		client := new(mockOLClient)
		client.On("GetEdition", mock.Anything, "1").
			Return(edition(ptr("Book"), "/authors/A", "/authors/B"), nil)
		client.On("GetAuthor", mock.Anything, "/authors/A").
			Return(nil, fmt.Errorf("%w: boom", openlibrary.ErrNetwork))
		client.On("GetAuthor", mock.Anything, "/authors/B").Return(author("Bea"), nil)

		meta, err := NewResolver(client, Config{}).Resolve(ctx, "1")

		require.NoError(t, err)
		assert.Equal(t, "Bea", meta.Author)
	})

	t.Run("all author lookups fail", func(t *testing.T) {
		client := new(mockOLClient)
		client.On("GetEdition", mock.Anything, "1").
			Return(edition(ptr("Book"), "/authors/A"), nil)
		client.On("GetAuthor", mock.Anything, "/authors/A").
			Return(nil, &openlibrary.StatusError{StatusCode: 500})

		meta, err := NewResolver(client, Config{}).Resolve(ctx, "1")

		require.NoError(t, err)
		assert.Equal(t, catalog.UnknownAuthor, meta.Author)
	})

	t.Run("no authors and no title", func(t *testing.T) {
		client := new(mockOLClient)
		e := &openlibrary.Edition{Authors: []openlibrary.AuthorRef{{Key: nil}, {Key: ptr("  ")}}}
		client.On("GetEdition", mock.Anything, "1").Return(e, nil)

		meta, err := NewResolver(client, Config{}).Resolve(ctx, "1")

		require.NoError(t, err)
		assert.Equal(t, catalog.Metadata{Title: catalog.UnknownTitle, Author: catalog.UnknownAuthor}, meta)
		client.AssertNotCalled(t, "GetAuthor", mock.Anything, mock.Anything)
	})

	t.Run("author record without a name", func(t *testing.T) {
		client := new(mockOLClient)
		client.On("GetEdition", mock.Anything, "1").
			Return(edition(ptr("Book"), "/authors/A", "/authors/B"), nil)
		client.On("GetAuthor", mock.Anything, "/authors/A").Return(&openlibrary.AuthorDetails{}, nil)
		client.On("GetAuthor", mock.Anything, "/authors/B").Return(author("Bea"), nil)

		meta, err := NewResolver(client, Config{}).Resolve(ctx, "1")

		require.NoError(t, err)
		assert.Equal(t, "Unknown Author, Bea", meta.Author)
	})
}

func TestResolver_EditionFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"not found", &openlibrary.StatusError{StatusCode: 404}, catalog.ErrLookupNotFound},
		{"server error", &openlibrary.StatusError{StatusCode: 503}, catalog.ErrLookupUpstream},
		{"timeout", fmt.Errorf("%w: deadline", openlibrary.ErrTimeout), catalog.ErrLookupTimeout},
		{"network", fmt.Errorf("%w: refused", openlibrary.ErrNetwork), catalog.ErrLookupNetwork},
		{"bad payload", fmt.Errorf("%w: decode", openlibrary.ErrUpstream), catalog.ErrLookupUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := new(mockOLClient)
			client.On("GetEdition", mock.Anything, "1").Return(nil, tc.err)

			_, err := NewResolver(client, Config{}).Resolve(context.Background(), "1")

			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, tc.err)
			client.AssertNotCalled(t, "GetAuthor", mock.Anything, mock.Anything)
		})
	}
}

func TestResolver_CachesAuthorNames(t *testing.T) {
	client := new(mockOLClient)
	client.On("GetEdition", mock.Anything, "1").Return(edition(ptr("One"), "/authors/A"), nil)
	client.On("GetEdition", mock.Anything, "2").Return(edition(ptr("Two"), "/authors/A"), nil)
	client.On("GetAuthor", mock.Anything, "/authors/A").Return(author("Ann"), nil).Once()

	r := NewResolver(client, Config{})
	for _, isbn := range []string{"1", "2"} {
		meta, err := r.Resolve(context.Background(), isbn)
		require.NoError(t, err)
		assert.Equal(t, "Ann", meta.Author)
	}
	client.AssertNumberOfCalls(t, "GetAuthor", 1)
}

func TestResolver_FailedAuthorIsNotCached(t *testing.T) {
	client := new(mockOLClient)
	client.On("GetEdition", mock.Anything, "1").Return(edition(ptr("One"), "/authors/A"), nil)
	client.On("GetAuthor", mock.Anything, "/authors/A").
		Return(nil, fmt.Errorf("%w: deadline", openlibrary.ErrTimeout)).Once()
	client.On("GetAuthor", mock.Anything, "/authors/A").Return(author("Ann"), nil).Once()

	r := NewResolver(client, Config{})

	meta, err := r.Resolve(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnknownAuthor, meta.Author)

	meta, err = r.Resolve(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", meta.Author)
}

func TestResolver_AuthorNon200IsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/authors/") {
			w.WriteHeader(http.StatusNonAuthoritativeInfo)
			w.Write([]byte(`{"name":"Proxy Name"}`))
			return
		}
		w.Write([]byte(`{"title":"1984","authors":[{"key":"/authors/OL118077A"}]}`))
	}))
	t.Cleanup(srv.Close)
	client := openlibrary.NewClient(openlibrary.Config{BaseURL: srv.URL, BookTimeout: time.Second, AuthorTimeout: time.Second})

	meta, err := NewResolver(client, Config{}).Resolve(context.Background(), "978-0451524935")

	require.NoError(t, err)
	assert.Equal(t, catalog.Metadata{Title: "1984", Author: "Unknown Author"}, meta)
}
