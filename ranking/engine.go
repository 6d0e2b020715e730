package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mycok/spiderank/pagerank"
	"github.com/mycok/spiderank/store"
)

// Engine computes the PageRank of every crawled page, the TF-IDF score of
// every posting and blends both into the final rank of each page. It is
// meant to run once the store is no longer being written by crawlers.
type Engine struct {
	cfg Config
}

// New returns a configured ranking engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("ranking engine: config validation failed: %w", err)
	}

	return &Engine{cfg: cfg}, nil
}

// Run executes the PageRank, TF-IDF and score combination passes in order.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.RankPages(ctx); err != nil {
		return err
	}

	if err := e.ScoreTerms(ctx); err != nil {
		return err
	}

	return e.CombineScores(ctx)
}

// RankPages computes the PageRank of the crawled pages and replaces the
// stored ranks. Edges touching pages that are not crawled are ignored.
func (e *Engine) RankPages(ctx context.Context) error {
	calc, err := pagerank.NewCalculator(pagerank.Config{
		DampingFactor: e.cfg.DampingFactor,
		MaxIterations: e.cfg.MaxIterations,
		Tolerance:     e.cfg.Tolerance,
	})
	if err != nil {
		return err
	}

	ids, err := e.cfg.Store.CrawledPageIDs()
	if err != nil {
		return fmt.Errorf("rank pages: %w", err)
	}

	for _, id := range ids {
		calc.AddVertex(id)
	}

	edgeIt, err := e.cfg.Store.Edges()
	if err != nil {
		return fmt.Errorf("rank pages: %w", err)
	}

	var numOfEdges, skippedEdges int
	for edgeIt.Next() {
		edge := edgeIt.Edge()
		if err := calc.AddEdge(edge.Src, edge.Dst); err != nil {
			if errors.Is(err, pagerank.ErrUnknownVertex) {
				skippedEdges++
				continue
			}
			_ = edgeIt.Close()

			return fmt.Errorf("rank pages: %w", err)
		}
		numOfEdges++
	}

	if err := edgeIt.Error(); err != nil {
		_ = edgeIt.Close()
		return fmt.Errorf("rank pages: %w", err)
	}

	if err := edgeIt.Close(); err != nil {
		return fmt.Errorf("rank pages: %w", err)
	}

	if err := calc.CalculatePageRanks(ctx); err != nil {
		return fmt.Errorf("rank pages: %w", err)
	}

	ranks := make(map[int64]float64, len(ids))
	_ = calc.Scores(func(id int64, score float64) error {
		ranks[id] = round6(score)
		return nil
	})

	if err := e.cfg.Store.SaveRanks(ranks); err != nil {
		return fmt.Errorf("rank pages: %w", err)
	}

	e.cfg.Logger.WithFields(logrus.Fields{
		"pages":         len(ids),
		"edges":         numOfEdges,
		"skipped_edges": skippedEdges,
		"iterations":    calc.Iterations(),
	}).Info("computed page ranks")

	return nil
}

// ScoreTerms assigns the TF-IDF score to every posting of a crawled page
// with a non-zero word count.
func (e *Engine) ScoreTerms(ctx context.Context) error {
	numOfPages, err := e.cfg.Store.CountCrawled()
	if err != nil {
		return fmt.Errorf("score terms: %w", err)
	}

	if numOfPages == 0 {
		e.cfg.Logger.Info("no crawled pages; skipping TF-IDF scoring")
		return nil
	}

	docFreqs, err := e.cfg.Store.DocumentFrequencies()
	if err != nil {
		return fmt.Errorf("score terms: %w", err)
	}

	postings, err := e.loadPostings()
	if err != nil {
		return fmt.Errorf("score terms: %w", err)
	}

	var (
		batch  = make([]store.PostingScore, 0, e.cfg.ScoreBatchSize)
		scored int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.cfg.Store.UpdatePostingScores(batch); err != nil {
			return err
		}
		scored += len(batch)
		batch = batch[:0]

		return ctx.Err()
	}

	for _, p := range postings {
		if p.WordCount == 0 || docFreqs[p.TermID] == 0 {
			continue
		}

		batch = append(batch, store.PostingScore{
			TermID: p.TermID,
			PageID: p.PageID,
			Score:  TFIDF(p.Frequency, p.WordCount, docFreqs[p.TermID], numOfPages),
		})

		if len(batch) >= e.cfg.ScoreBatchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("score terms: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return fmt.Errorf("score terms: %w", err)
	}

	e.cfg.Logger.WithFields(logrus.Fields{
		"pages":    numOfPages,
		"postings": scored,
	}).Info("computed TF-IDF scores")

	return nil
}

// CombineScores blends the min-max normalized TF-IDF sum of each page with
// its PageRank into the page's final rank. Pages without scored postings
// keep a null final rank.
func (e *Engine) CombineScores(ctx context.Context) error {
	sums, err := e.cfg.Store.PageScoreSums()
	if err != nil {
		return fmt.Errorf("combine scores: %w", err)
	}

	if err := e.cfg.Store.ClearFinalRanks(); err != nil {
		return fmt.Errorf("combine scores: %w", err)
	}

	if len(sums) == 0 {
		e.cfg.Logger.Info("no TF-IDF scores; skipping score combination")
		return nil
	}

	ranks, err := e.cfg.Store.Ranks()
	if err != nil {
		return fmt.Errorf("combine scores: %w", err)
	}

	ids := make([]int64, 0, len(sums))
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	for id, sum := range sums {
		ids = append(ids, id)
		minSum = math.Min(minSum, sum)
		maxSum = math.Max(maxSum, sum)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		batch    = make(map[int64]float64, e.cfg.RankBatchSize)
		combined int
		unranked int
	)
	for _, id := range ids {
		pr, exists := ranks[id]
		if !exists {
			unranked++
			continue
		}

		norm := 1.0
		if maxSum > minSum {
			norm = (sums[id] - minSum) / (maxSum - minSum)
		}
		batch[id] = FinalRank(norm, pr, e.cfg.Alpha)

		if len(batch) >= e.cfg.RankBatchSize {
			if err := e.cfg.Store.UpdateFinalRanks(batch); err != nil {
				return fmt.Errorf("combine scores: %w", err)
			}
			combined += len(batch)
			batch = make(map[int64]float64, e.cfg.RankBatchSize)

			if err := ctx.Err(); err != nil {
				return fmt.Errorf("combine scores: %w", err)
			}
		}
	}

	if len(batch) > 0 {
		if err := e.cfg.Store.UpdateFinalRanks(batch); err != nil {
			return fmt.Errorf("combine scores: %w", err)
		}
		combined += len(batch)
	}

	e.cfg.Logger.WithFields(logrus.Fields{
		"pages":    combined,
		"unranked": unranked,
	}).Info("combined page scores")

	return nil
}

// loadPostings reads every posting up front so that no read cursor is held
// open while scores are written back.
func (e *Engine) loadPostings() ([]store.Posting, error) {
	it, err := e.cfg.Store.Postings()
	if err != nil {
		return nil, err
	}

	var postings []store.Posting
	for it.Next() {
		postings = append(postings, *it.Posting())
	}

	if err := it.Error(); err != nil {
		_ = it.Close()
		return nil, err
	}

	return postings, it.Close()
}

// TFIDF returns the relevance of a term occurring freq times on a page with
// wordCount distinct terms, given the number of pages containing the term
// (docFreq) out of numOfPages. The result is rounded to 6 decimals.
func TFIDF(freq, wordCount, docFreq, numOfPages int) float64 {
	tf := float64(freq) / float64(wordCount)
	idf := math.Log(float64(numOfPages) / float64(docFreq))

	return round6(tf * idf)
}

// FinalRank blends a normalized TF-IDF score with a PageRank score.
func FinalRank(normTFIDF, pageRank, alpha float64) float64 {
	return alpha*normTFIDF + (1-alpha)*pageRank
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
