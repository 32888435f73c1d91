package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, books ...Book) (*Service, *MockResolver, *memRepo) {
	t.Helper()
	ctrl := gomock.NewController(t)
	resolver := NewMockResolver(ctrl)

	store := NewStore()
	for _, b := range books {
		require.NoError(t, store.Insert(b))
	}
	repo := &memRepo{}
	return NewService(store, resolver, repo), resolver, repo
}

func TestService_AddByISBN(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves and persists a new book", func(t *testing.T) {
		svc, resolver, repo := newTestService(t)
		resolver.EXPECT().Resolve(gomock.Any(), "978-0451524935").
			Return(Metadata{Title: "1984", Author: "George Orwell"}, nil)

		book, err := svc.AddByISBN(ctx, "  978-0451524935 ")

		require.NoError(t, err)
		assert.Equal(t, orwell, book)
		assert.Equal(t, []Book{orwell}, svc.List())
		assert.Equal(t, 1, repo.writes)

		reloaded := NewStore()
		require.NoError(t, reloaded.Load(ctx, repo))
		assert.Equal(t, []Book{orwell}, reloaded.List())
	})

	t.Run("existing isbn never reaches the resolver", func(t *testing.T) {
		svc, resolver, repo := newTestService(t, orwell)
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.AddByISBN(ctx, orwell.ISBN)

		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, []Book{orwell}, svc.List())
		assert.Equal(t, 0, repo.writes)
	})

	t.Run("blank isbn is invalid", func(t *testing.T) {
		svc, resolver, _ := newTestService(t)
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.AddByISBN(ctx, "   ")

		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, 0, svc.Count())
	})

	t.Run("resolution failure keeps the lookup kind", func(t *testing.T) {
		svc, resolver, repo := newTestService(t)
		resolver.EXPECT().Resolve(gomock.Any(), "000").
			Return(Metadata{}, fmt.Errorf("%w: status 404", ErrLookupNotFound))

		_, err := svc.AddByISBN(ctx, "000")

		assert.ErrorIs(t, err, ErrResolutionFailed)
		assert.ErrorIs(t, err, ErrLookupNotFound)
		assert.Equal(t, 0, svc.Count())
		assert.Equal(t, 0, repo.writes)
	})

	t.Run("persist failure still adds the book", func(t *testing.T) {
		svc, resolver, repo := newTestService(t)
		repo.writeErr = errors.New("read-only file system")
		resolver.EXPECT().Resolve(gomock.Any(), dune.ISBN).
			Return(Metadata{Title: dune.Title, Author: dune.Author}, nil)

		book, err := svc.AddByISBN(ctx, dune.ISBN)

		assert.ErrorIs(t, err, ErrPersistFailed)
		assert.Equal(t, dune, book)
		assert.Equal(t, []Book{dune}, svc.List())
	})

	t.Run("cancelled caller does not abort the write", func(t *testing.T) {
		svc, resolver, _ := newTestService(t)
		cctx, cancel := context.WithCancel(ctx)
		repo := NewMockSnapshotRepository(gomock.NewController(t))
		svc.repo = repo

		resolver.EXPECT().Resolve(gomock.Any(), dune.ISBN).DoAndReturn(
			func(context.Context, string) (Metadata, error) {
				cancel()
				return Metadata{Title: dune.Title, Author: dune.Author}, nil
			})
		repo.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ []byte) error {
				return ctx.Err()
			})

		_, err := svc.AddByISBN(cctx, dune.ISBN)
		assert.NoError(t, err)
	})
}

func TestService_AddManual(t *testing.T) {
	ctx := context.Background()

	t.Run("adds without the resolver", func(t *testing.T) {
		svc, resolver, repo := newTestService(t)
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

		book, err := svc.AddManual(ctx, " Dune ", "Frank Herbert", "978-0441172719")

		require.NoError(t, err)
		assert.Equal(t, dune, book)
		assert.Equal(t, 1, repo.writes)
	})

	t.Run("required fields", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		cases := [][3]string{
			{"", "Frank Herbert", "1"},
			{"Dune", " ", "1"},
			{"Dune", "Frank Herbert", ""},
		}
		for _, c := range cases {
			_, err := svc.AddManual(ctx, c[0], c[1], c[2])
			assert.ErrorIs(t, err, ErrInvalidInput)
		}
		assert.Equal(t, 0, svc.Count())
	})

	t.Run("duplicate isbn", func(t *testing.T) {
		svc, _, repo := newTestService(t, dune)

		_, err := svc.AddManual(ctx, "Other", "Someone", dune.ISBN)

		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, []Book{dune}, svc.List())
		assert.Equal(t, 0, repo.writes)
	})
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes and persists", func(t *testing.T) {
		svc, _, repo := newTestService(t, orwell, dune)

		removed, err := svc.Remove(ctx, orwell.ISBN)

		require.NoError(t, err)
		assert.Equal(t, orwell, removed)
		assert.Equal(t, []Book{dune}, svc.List())
		assert.Equal(t, 1, repo.writes)
	})

	t.Run("nonexistent isbn leaves the catalog unchanged", func(t *testing.T) {
		svc, _, repo := newTestService(t, orwell)

		_, err := svc.Remove(ctx, "nonexistent")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []Book{orwell}, svc.List())
		assert.Equal(t, 0, repo.writes)
	})

	t.Run("persist failure still removes", func(t *testing.T) {
		svc, _, repo := newTestService(t, orwell)
		repo.writeErr = errors.New("disk full")

		removed, err := svc.Remove(ctx, orwell.ISBN)

		assert.ErrorIs(t, err, ErrPersistFailed)
		assert.Equal(t, orwell, removed)
		assert.Equal(t, 0, svc.Count())
	})
}

func TestService_Stats(t *testing.T) {
	svc, _, _ := newTestService(t,
		Book{Title: "A", Author: "Ann", ISBN: "1"},
		Book{Title: "B", Author: "Bob", ISBN: "2"},
		Book{Title: "C", Author: "Bob", ISBN: "3"},
		Book{Title: "D", Author: "Cat", ISBN: "4"},
		Book{Title: "E", Author: "Ann", ISBN: "5"},
		Book{Title: "F", Author: "Dan", ISBN: "6"},
	)

	stats := svc.Stats(3)

	assert.Equal(t, 6, stats.TotalBooks)
	assert.Equal(t, 4, stats.UniqueAuthors)
	assert.Equal(t, []AuthorCount{
		{Name: "Ann", BookCount: 2},
		{Name: "Bob", BookCount: 2},
		{Name: "Cat", BookCount: 1},
	}, stats.TopAuthors)

	assert.Len(t, svc.Stats(0).TopAuthors, 4)

	empty, _, _ := newTestService(t)
	assert.Equal(t, Stats{TopAuthors: []AuthorCount{}}, empty.Stats(5))
}

func TestService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("loads the snapshot", func(t *testing.T) {
		repo := &memRepo{}
		require.NoError(t, repo.Write(ctx, []byte(`[{"title":"1984","author":"George Orwell","isbn":"978-0451524935"}]`)))

		svc, err := Open(ctx, nil, repo)

		require.NoError(t, err)
		assert.Equal(t, []Book{orwell}, svc.List())
	})

	t.Run("corrupted snapshot yields a usable empty service", func(t *testing.T) {
		svc, err := Open(ctx, nil, &memRepo{data: []byte("garbage")})

		assert.ErrorIs(t, err, ErrLoadCorrupted)
		require.NotNil(t, svc)
		assert.Equal(t, 0, svc.Count())

		_, err = svc.AddManual(ctx, "Dune", "Frank Herbert", "978-0441172719")
		assert.NoError(t, err)
	})
}

func TestService_ConcurrentAddsKeepISBNUnique(t *testing.T) {
	svc, resolver, _ := newTestService(t)
	resolver.EXPECT().Resolve(gomock.Any(), "42").
		Return(Metadata{Title: "T", Author: "A"}, nil).Times(1)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddByISBN(context.Background(), "42")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyExists)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, svc.Count())
}

func TestService_ManualDuplicateScenario(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.AddManual(ctx, "1984", "George Orwell", "978-0451524935")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Count())

	_, err = svc.AddManual(ctx, "1984", "George Orwell", "978-0451524935")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, 1, svc.Count())

	found, ok := svc.Find(" 978-0451524935 ")
	assert.True(t, ok)
	assert.Equal(t, orwell, found)
}
