package blog

import (
	"net/http"
)

type articleRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type viewRequest struct {
	ArticleID int64 `json:"articleId"`
}

func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]any{
		"viewer":   viewer(r.Context()),
		"articles": a.articles.List(),
	})
}

func (a *API) ArticleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := ParseArticleID(r.URL.Query().Get("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	art, err := a.articles.Get(id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{
		"viewer":  viewer(r.Context()),
		"article": art,
	})
}

func (a *API) SearchArticles(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]any{
		"viewer":   viewer(r.Context()),
		"articles": a.articles.Search(r.URL.Query().Get("keyword")),
	})
}

func (a *API) AddArticle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[articleRequest](w, r)
	if !ok {
		return
	}
	art, err := a.articles.Add(req.Title, req.Content, viewer(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, art)
}

// RecordView counts one anonymous view of an article.
func (a *API) RecordView(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[viewRequest](w, r)
	if !ok {
		return
	}
	if _, err := a.articles.Get(req.ArticleID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]int64{"views": a.stats.RecordView(req.ArticleID)})
}

func (a *API) HotArticles(w http.ResponseWriter, r *http.Request) {
	writeData(w, a.stats.Hot(hotListSize))
}
