// Package frontend exposes the search engine over a JSON HTTP API.
package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/mycok/spiderank/store"
)

const (
	searchEndpoint = "/search"
	imagesEndpoint = "/images"
	luckyEndpoint  = "/lucky"
	healthEndpoint = "/healthz"

	// maxResultsPerPage caps the per_page query parameter.
	maxResultsPerPage = 100
)

// Service represents the front-end service of spiderank. It satisfies the
// service.Service interface.
type Service struct {
	config Config
	// Any router type that satisfies the http.Handler interface.
	router *chi.Mux
}

// New creates and returns a fully configured front-end service instance.
func New(config Config) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("frontend service: config validation failed: %w", err)
	}

	svc := &Service{
		config: config,
		router: chi.NewRouter(),
	}

	svc.router.Use(middleware.Recoverer)
	svc.router.Get(searchEndpoint, svc.search)
	svc.router.Get(imagesEndpoint, svc.searchImages)
	svc.router.Get(luckyEndpoint, svc.lucky)
	svc.router.Get(healthEndpoint, svc.health)
	svc.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		svc.writeError(w, http.StatusNotFound, "not found")
	})

	return svc, nil
}

// Name returns the name of the service.
func (svc *Service) Name() string { return "frontend" }

// Run executes the service and blocks until the context gets cancelled
// or an error occurs.
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.config.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:    svc.config.ListenAddr,
		Handler: svc.router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	svc.config.Logger.WithField("addr", l.Addr().String()).Info("started service")

	if err = srv.Serve(l); errors.Is(err, http.ErrServerClosed) {
		// Server closed gracefully.
		err = nil
	}

	return err
}

type searchResult struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Highlighted string   `json:"highlighted"`
	FinalRank   *float64 `json:"final_rank"`
}

type searchResponse struct {
	Data      []searchResult `json:"data"`
	PageCount int            `json:"page_count"`
}

type imageResult struct {
	URL          string `json:"url"`
	Alt          string `json:"alt"`
	SourcePageID int64  `json:"source_page_id"`
}

type imagesResponse struct {
	Data []imageResult `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (svc *Service) search(w http.ResponseWriter, r *http.Request) {
	query, page, perPage, ok := svc.queryParams(w, r)
	if !ok {
		return
	}

	results, pageCount, err := svc.config.Searcher.Search(query, page, perPage)
	if err != nil {
		svc.config.Logger.WithField("err", err).Error("search query execution failed")
		svc.writeError(w, http.StatusInternalServerError, "search failed")

		return
	}

	highlighter := newMatchHighlighter(svc.config.Analyzer, query)
	res := searchResponse{Data: make([]searchResult, 0, len(results)), PageCount: pageCount}
	for _, result := range results {
		res.Data = append(res.Data, searchResult{
			Title:       result.Title,
			URL:         result.URL,
			Description: result.Description,
			Highlighted: highlighter.Highlight(result.Description),
			FinalRank:   result.FinalRank,
		})
	}

	svc.writeJSON(w, http.StatusOK, res)
}

func (svc *Service) searchImages(w http.ResponseWriter, r *http.Request) {
	query, page, perPage, ok := svc.queryParams(w, r)
	if !ok {
		return
	}

	results, err := svc.config.Searcher.SearchImages(query, page, perPage)
	if err != nil {
		svc.config.Logger.WithField("err", err).Error("image query execution failed")
		svc.writeError(w, http.StatusInternalServerError, "image search failed")

		return
	}

	res := imagesResponse{Data: make([]imageResult, 0, len(results))}
	for _, result := range results {
		res.Data = append(res.Data, imageResult{
			URL:          result.URL,
			Alt:          result.Alt,
			SourcePageID: result.SourcePageID,
		})
	}

	svc.writeJSON(w, http.StatusOK, res)
}

func (svc *Service) lucky(w http.ResponseWriter, r *http.Request) {
	target, err := svc.config.Searcher.RandomPage()
	if errors.Is(err, store.ErrNotFound) {
		svc.writeError(w, http.StatusNotFound, "no pages have been crawled yet")
		return
	} else if err != nil {
		svc.config.Logger.WithField("err", err).Error("random page lookup failed")
		svc.writeError(w, http.StatusInternalServerError, "random page lookup failed")

		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (svc *Service) health(w http.ResponseWriter, _ *http.Request) {
	svc.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// queryParams extracts the q, page and per_page parameters. Missing or
// malformed page values are left to the searcher to clamp; per_page is
// capped at maxResultsPerPage.
func (svc *Service) queryParams(w http.ResponseWriter, r *http.Request) (string, int, int, bool) {
	values := r.URL.Query()

	query := strings.TrimSpace(values.Get("q"))
	if query == "" {
		svc.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return "", 0, 0, false
	}

	page, _ := strconv.Atoi(values.Get("page"))
	perPage, err := strconv.Atoi(values.Get("per_page"))
	if err != nil || perPage <= 0 {
		perPage = svc.config.NumOfResultsPerPage
	}
	if perPage > maxResultsPerPage {
		perPage = maxResultsPerPage
	}

	return query, page, perPage, true
}

func (svc *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		svc.config.Logger.WithFields(logrus.Fields{
			"err":    err,
			"status": status,
		}).Warn("writing response failed")
	}
}

func (svc *Service) writeError(w http.ResponseWriter, status int, msg string) {
	svc.writeJSON(w, status, errorResponse{Error: msg})
}
