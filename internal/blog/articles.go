package blog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var ErrArticleNotFound = errors.New("blog: article not found")

// Article is a published post.
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Articles is an in-memory article table.
type Articles struct {
	mu     sync.RWMutex
	nextID int64
	rows   []Article
}

// NewArticles returns a table seeded with seed.
func NewArticles(seed ...Article) *Articles {
	a := &Articles{}
	for _, s := range seed {
		_, _ = a.Add(s.Title, s.Content, s.Author)
	}
	return a
}

// Add stores a new article and returns it.
func (a *Articles) Add(title, content, author string) (Article, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Article{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	art := Article{
		ID:        a.nextID,
		Title:     title,
		Content:   content,
		Author:    author,
		CreatedAt: time.Now().UTC(),
	}
	a.rows = append(a.rows, art)
	return art, nil
}

// List returns articles newest first.
func (a *Articles) List() []Article {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Article, len(a.rows))
	for i := range a.rows {
		out[len(a.rows)-1-i] = a.rows[i]
	}
	return out
}

// Get returns the article with id.
func (a *Articles) Get(id int64) (Article, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, art := range a.rows {
		if art.ID == id {
			return art, nil
		}
	}
	return Article{}, ErrArticleNotFound
}

// Search returns articles whose title or content contains keyword,
// case-insensitively, newest first.
func (a *Articles) Search(keyword string) []Article {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	var out []Article
	for _, art := range a.List() {
		if keyword == "" ||
			strings.Contains(strings.ToLower(art.Title), keyword) ||
			strings.Contains(strings.ToLower(art.Content), keyword) {
			out = append(out, art)
		}
	}
	return out
}

// ParseArticleID parses the id query parameter.
func ParseArticleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: article id must be a positive integer", ErrInvalidInput)
	}
	return id, nil
}

// HotEntry is one row of the hot list.
type HotEntry struct {
	ArticleID int64 `json:"articleId"`
	Views     int64 `json:"views"`
}

// Stats counts article views.
type Stats struct {
	mu    sync.Mutex
	views map[int64]int64
}

func NewStats() *Stats {
	return &Stats{views: make(map[int64]int64)}
}

// RecordView adds one view to id and returns the new total.
func (s *Stats) RecordView(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[id]++
	return s.views[id]
}

// Hot returns up to n entries ordered by views, then by id.
func (s *Stats) Hot(n int) []HotEntry {
	s.mu.Lock()
	out := make([]HotEntry, 0, len(s.views))
	for id, v := range s.views {
		out = append(out, HotEntry{ArticleID: id, Views: v})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].ArticleID < out[j].ArticleID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
