// Package console is the interactive text front-end of the catalog.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"booklibrary/internal/catalog"
)

// Catalog is the part of catalog.Service the console drives.
type Catalog interface {
	AddByISBN(ctx context.Context, isbn string) (catalog.Book, error)
	AddManual(ctx context.Context, title, author, isbn string) (catalog.Book, error)
	Remove(ctx context.Context, isbn string) (catalog.Book, error)
	Find(isbn string) (catalog.Book, bool)
	List() []catalog.Book
	Stats(limit int) catalog.Stats
}

const rule = "=================================================="

type Console struct {
	cat Catalog
	in  *bufio.Scanner
	out io.Writer
}

func New(cat Catalog, in io.Reader, out io.Writer) *Console {
	return &Console{cat: cat, in: bufio.NewScanner(in), out: out}
}

// Run shows the menu until the user picks 0, input ends or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	c.printf("Welcome to the Library Management System!\n")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.menu()
		choice, ok := c.prompt("\nEnter your choice (0-6): ")
		if !ok {
			c.printf("\nGoodbye!\n")
			return nil
		}

		switch choice {
		case "0":
			c.printf("\nThank you for using the Library Management System!\nGoodbye!\n")
			return nil
		case "1":
			c.addByISBN(ctx)
		case "2":
			c.addManual(ctx)
		case "3":
			c.remove(ctx)
		case "4":
			c.List()
		case "5":
			c.search()
		case "6":
			c.Statistics()
		default:
			c.printf("Invalid choice. Please enter a number between 0 and 6.\n")
		}

		if _, ok := c.prompt("\nPress Enter to continue..."); !ok {
			c.printf("\nGoodbye!\n")
			return nil
		}
	}
}

func (c *Console) menu() {
	c.printf("\n%s\nLIBRARY MANAGEMENT SYSTEM\n%s\n", rule, rule)
	c.printf("1. Add Book (by ISBN)\n")
	c.printf("2. Add Book (Manual)\n")
	c.printf("3. Remove Book\n")
	c.printf("4. List All Books\n")
	c.printf("5. Search Book\n")
	c.printf("6. Library Statistics\n")
	c.printf("0. Exit\n%s\n", rule)
}

func (c *Console) addByISBN(ctx context.Context) {
	c.printf("\nAdd Book by ISBN\n------------------------------\n")
	isbn, ok := c.required("Enter ISBN: ", "ISBN")
	if !ok {
		return
	}
	c.printf("Searching for book with ISBN: %s\nPlease wait...\n", isbn)
	book, err := c.cat.AddByISBN(ctx, isbn)
	c.reportAdded(book, err)
}

func (c *Console) addManual(ctx context.Context) {
	c.printf("\nAdd Book Manually\n------------------------------\n")
	title, ok := c.required("Enter book title: ", "Title")
	if !ok {
		return
	}
	author, ok := c.required("Enter author name: ", "Author")
	if !ok {
		return
	}
	isbn, ok := c.required("Enter ISBN: ", "ISBN")
	if !ok {
		return
	}
	book, err := c.cat.AddManual(ctx, title, author, isbn)
	c.reportAdded(book, err)
}

func (c *Console) reportAdded(book catalog.Book, err error) {
	switch {
	case err == nil:
		c.printf("Book added successfully!\n%s\n", book)
	case errors.Is(err, catalog.ErrPersistFailed):
		c.printf("Book added, but the library could not be saved: %v\n", err)
	default:
		c.printf("Failed to add book: %s\n", Describe(err))
	}
}

func (c *Console) remove(ctx context.Context) {
	c.printf("\nRemove Book\n------------------------------\n")
	isbn, ok := c.required("Enter ISBN of book to remove: ", "ISBN")
	if !ok {
		return
	}
	book, found := c.cat.Find(isbn)
	if !found {
		c.printf("Book with ISBN %s not found.\n", isbn)
		return
	}
	c.printf("Found book: %s\n", book)
	answer, _ := c.prompt("Are you sure you want to remove this book? (y/N): ")
	if !strings.EqualFold(answer, "y") {
		c.printf("Operation cancelled.\n")
		return
	}

	_, err := c.cat.Remove(ctx, isbn)
	switch {
	case err == nil:
		c.printf("Book removed successfully!\n")
	case errors.Is(err, catalog.ErrPersistFailed):
		c.printf("Book removed, but the library could not be saved: %v\n", err)
	default:
		c.printf("Failed to remove book: %s\n", Describe(err))
	}
}

func (c *Console) search() {
	c.printf("\nSearch Book\n------------------------------\n")
	isbn, ok := c.required("Enter ISBN to search: ", "ISBN")
	if !ok {
		return
	}
	if book, found := c.cat.Find(isbn); found {
		c.printf("Found: %s\n", book)
		return
	}
	c.printf("Book with ISBN %s not found.\n", isbn)
}

// List prints every book, numbered from 1.
func (c *Console) List() {
	c.printf("\nAll Books in Library\n%s\n", strings.Repeat("-", 50))
	books := c.cat.List()
	if len(books) == 0 {
		c.printf("No books in the library yet.\n")
	}
	for i, b := range books {
		c.printf("%2d. %s\n", i+1, b)
	}
	c.printf("\nTotal books: %d\n", len(books))
}

// Statistics prints totals and the authors with more than one book.
func (c *Console) Statistics() {
	c.printf("\nLibrary Statistics\n------------------------------\n")
	stats := c.cat.Stats(0)
	c.printf("Total books: %d\n", stats.TotalBooks)
	if stats.TotalBooks == 0 {
		return
	}
	c.printf("Unique authors: %d\n", stats.UniqueAuthors)

	header := false
	for _, a := range stats.TopAuthors {
		if a.BookCount < 2 {
			continue
		}
		if !header {
			c.printf("\nAuthors with multiple books:\n")
			header = true
		}
		c.printf("  - %s: %d books\n", a.Name, a.BookCount)
	}
}

// Describe turns a catalog error into a message for the user.
func Describe(err error) string {
	switch {
	case errors.Is(err, catalog.ErrAlreadyExists):
		return "a book with this ISBN is already in the library"
	case errors.Is(err, catalog.ErrNotFound):
		return "no book with this ISBN in the library"
	case errors.Is(err, catalog.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, catalog.ErrLookupNotFound):
		return "book not found in Open Library"
	case errors.Is(err, catalog.ErrLookupTimeout):
		return "Open Library did not respond in time"
	case errors.Is(err, catalog.ErrLookupNetwork):
		return "could not reach Open Library"
	case errors.Is(err, catalog.ErrResolutionFailed):
		return "Open Library lookup failed"
	default:
		return err.Error()
	}
}

// required reads one answer; an empty one is reported and yields false.
func (c *Console) required(label, field string) (string, bool) {
	v, ok := c.prompt(label)
	if !ok {
		return "", false
	}
	if v == "" {
		c.printf("%s cannot be empty.\n", field)
		return "", false
	}
	return v, true
}

func (c *Console) prompt(label string) (string, bool) {
	c.printf("%s", label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
