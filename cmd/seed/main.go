package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"booklibrary/internal/app"
	"booklibrary/internal/catalog"
	"booklibrary/internal/config"
)

var classics = []catalog.Book{
	{Title: "1984", Author: "George Orwell", ISBN: "978-0451524935"},
	{Title: "Animal Farm", Author: "George Orwell", ISBN: "978-0451526342"},
	{Title: "Good Omens", Author: "Terry Pratchett, Neil Gaiman", ISBN: "978-0060853983"},
	{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441172719"},
	{Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "978-0547928227"},
	{Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "978-0141439518"},
	{Title: "Brave New World", Author: "Aldous Huxley", ISBN: "978-0060850524"},
}

func main() {
	generate := flag.Int("generate", 0, "Number of additional random books to add")
	flag.Parse()

	config.LoadEnvFiles()
	ctx := context.Background()

	a, err := app.Open(ctx, config.Load())
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer a.Close()

	books := append([]catalog.Book(nil), classics...)
	books = append(books, generated(*generate)...)

	added, skipped, err := seed(ctx, a.Service, books)
	if err != nil {
		log.Fatalf("Seeding stopped after %d books: %v", added, err)
	}
	log.Printf("Seed complete added=%d skipped=%d total=%d", added, skipped, a.Service.Count())
}

// seed adds books through the service, skipping ISBNs that already exist.
func seed(ctx context.Context, svc *catalog.Service, books []catalog.Book) (added, skipped int, err error) {
	for i, b := range books {
		_, err := svc.AddManual(ctx, b.Title, b.Author, b.ISBN)
		switch {
		case err == nil:
			added++
		case errors.Is(err, catalog.ErrAlreadyExists):
			skipped++
		default:
			return added, skipped, err
		}
		if (i+1)%1000 == 0 {
			log.Printf("Seeded %d/%d books", i+1, len(books))
		}
	}
	return added, skipped, nil
}

func generated(count int) []catalog.Book {
	words := []string{"Shadow", "Light", "Dream", "Journey", "Secret", "Mystery", "Legend", "Quest", "Destiny", "Echo"}
	authors := []string{"Ann Leckie", "Ted Chiang", "Ursula K. Le Guin", "Iain M. Banks", "Octavia E. Butler"}

	books := make([]catalog.Book, 0, count)
	for i := 0; i < count; i++ {
		books = append(books, catalog.Book{
			Title:  fmt.Sprintf("Book Title %d - %s", i+1, words[rand.Intn(len(words))]),
			Author: authors[rand.Intn(len(authors))],
			ISBN:   fmt.Sprintf("979-%08d", i+1),
		})
	}
	return books
}
