package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	// Database drivers selectable through Open.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/mycok/spiderank/store"
)

// Supported database/sql driver names.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const queryTimeout = 10 * time.Second

var (
	findUncrawledQuery  = "SELECT id, url FROM pages WHERE url = ? AND crawled = FALSE"
	isCrawledQuery      = "SELECT crawled FROM pages WHERE url = ?"
	hasUncrawledQuery   = "SELECT EXISTS (SELECT 1 FROM pages WHERE crawled = FALSE)"
	uncrawledPagesQuery = `
		SELECT id, url FROM pages
		WHERE crawled = FALSE AND id > ?
		ORDER BY id
		LIMIT ?`

	isBlockedQuery   = "SELECT EXISTS (SELECT 1 FROM blocked_urls WHERE url = ?)"
	blockURLQuery    = "INSERT INTO blocked_urls (url) VALUES (?) ON CONFLICT (url) DO NOTHING"
	findPageIDQuery  = "SELECT id FROM pages WHERE url = ?"
	insertPageQuery  = "INSERT INTO pages (url) VALUES (?) ON CONFLICT (url) DO NOTHING"
	removeEdgesQuery = "DELETE FROM edges WHERE source_id = ? OR target_id = ?"
	// Each query removes the rows referencing a single page id.
	removePageQueries = []string{
		"DELETE FROM postings WHERE page_id = ?",
		"DELETE FROM images WHERE source_page_id = ?",
		"DELETE FROM ranks WHERE url_id = ?",
		"DELETE FROM pages WHERE id = ?",
	}

	markNonHTMLQuery = "UPDATE pages SET title = ?, description = ?, crawled = TRUE WHERE id = ?"
	markCrawledQuery = `
		UPDATE pages SET title = ?, description = ?, word_count = ?, crawled = TRUE
		WHERE id = ?`
	insertImageQuery = `
		INSERT INTO images (image_url, title, alt, context, source_page_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (image_url) DO NOTHING`
	insertTermQuery    = "INSERT INTO terms (word) VALUES (?) ON CONFLICT (word) DO NOTHING"
	findTermQuery      = "SELECT id FROM terms WHERE word = ?"
	upsertPostingQuery = `
		INSERT INTO postings (term_id, page_id, frequency) VALUES (?, ?, ?)
		ON CONFLICT (term_id, page_id) DO UPDATE SET frequency = excluded.frequency`

	crawledPageIDsQuery = "SELECT id FROM pages WHERE crawled = TRUE ORDER BY id"
	edgesQuery          = "SELECT source_id, target_id FROM edges"
	clearRanksQuery     = "DELETE FROM ranks"
	insertRankQuery     = "INSERT INTO ranks (url_id, rank) VALUES (?, ?)"
	ranksQuery          = "SELECT url_id, rank FROM ranks"
	countCrawledQuery   = "SELECT COUNT(*) FROM pages WHERE crawled = TRUE"
	postingsQuery       = `
		SELECT p.term_id, p.page_id, p.frequency, pg.word_count
		FROM postings p JOIN pages pg ON pg.id = p.page_id
		WHERE pg.crawled = TRUE AND pg.word_count > 0
		ORDER BY p.page_id, p.term_id`
	documentFrequenciesQuery = "SELECT term_id, COUNT(*) FROM postings GROUP BY term_id"
	updatePostingScoreQuery  = "UPDATE postings SET score = ? WHERE term_id = ? AND page_id = ?"
	pageScoreSumsQuery       = `
		SELECT p.page_id, SUM(p.score)
		FROM postings p JOIN pages pg ON pg.id = p.page_id
		WHERE pg.crawled = TRUE AND pg.word_count > 0 AND p.score IS NOT NULL
		GROUP BY p.page_id`
	clearFinalRanksQuery = "UPDATE pages SET final_rank = NULL WHERE final_rank IS NOT NULL"
	updateFinalRankQuery = "UPDATE pages SET final_rank = ? WHERE id = ?"

	matchingPagesSubQuery = `
		SELECT p.page_id FROM postings p JOIN terms t ON t.id = p.term_id
		WHERE t.word IN (%s)`
	countMatchesQuery = "SELECT COUNT(*) FROM pages WHERE id IN (" + matchingPagesSubQuery + ")"
	searchQuery       = `
		SELECT title, url, description, final_rank FROM pages
		WHERE id IN (` + matchingPagesSubQuery + `)
		ORDER BY final_rank IS NULL, final_rank DESC, id
		LIMIT ? OFFSET ?`
	randomPageQuery   = "SELECT url FROM pages WHERE crawled = TRUE ORDER BY RANDOM() LIMIT 1"
	searchImagesQuery = `
		SELECT image_url, alt, source_page_id FROM images
		WHERE LOWER(context) LIKE ? ESCAPE '\'
		ORDER BY id
		LIMIT ? OFFSET ?`
)

// Static and compile-time check to ensure SQLStore implements
// store.Store interface.
var _ store.Store = (*SQLStore)(nil)

// SQLStore implements store.Store on top of a relational database reachable
// through database/sql. SQLite (cgo and pure Go drivers) and PostgreSQL are
// supported.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// Open connects to the database identified by driverName and dsn, verifies
// the connection and creates any missing tables.
func Open(driverName, dsn string) (*SQLStore, error) {
	var schema []string
	switch driverName {
	case DriverSQLite3, DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("open store: unsupported driver %q", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLStore{db: db, postgres: driverName == DriverPostgres}, nil
}

// Close terminates the connection to the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Reset empties every table. It is meant to be used by tests.
func (s *SQLStore) Reset() error {
	for _, table := range tableNames {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}

	return nil
}

// rebind rewrites the '?' placeholders of query into the '$N' form expected
// by PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

// InsertURLs adds the given URLs as uncrawled pages unless they are already
// known or blocked.
func (s *SQLStore) InsertURLs(urls []string) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, u := range urls {
			var blocked bool
			if err := tx.QueryRow(s.rebind(isBlockedQuery), u).Scan(&blocked); err != nil {
				return err
			}
			if blocked {
				continue
			}

			if _, err := tx.Exec(s.rebind(insertPageQuery), u); err != nil {
				return err
			}
		}

		return nil
	}, "insert urls")
}

// HasUncrawled reports whether any uncrawled page remains.
func (s *SQLStore) HasUncrawled() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var exists bool
	if err := s.db.QueryRowContext(ctx, hasUncrawledQuery).Scan(&exists); err != nil {
		return false, fmt.Errorf("has uncrawled: %w", err)
	}

	return exists, nil
}

// UncrawledPages returns up to limit uncrawled pages whose id is greater than
// afterID, ordered by id.
func (s *SQLStore) UncrawledPages(afterID int64, limit int) ([]*store.Page, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(uncrawledPagesQuery), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("uncrawled pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []*store.Page
	for rows.Next() {
		p := new(store.Page)
		if err := rows.Scan(&p.ID, &p.URL); err != nil {
			return nil, fmt.Errorf("uncrawled pages: %w", err)
		}
		pages = append(pages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("uncrawled pages: %w", err)
	}

	return pages, nil
}

// FindUncrawled looks up an uncrawled page by URL.
func (s *SQLStore) FindUncrawled(url string) (*store.Page, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	p := new(store.Page)
	err := s.db.QueryRowContext(ctx, s.rebind(findUncrawledQuery), url).Scan(&p.ID, &p.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find uncrawled page: %w", store.ErrNotFound)
		}

		return nil, fmt.Errorf("find uncrawled page: %w", err)
	}

	return p, nil
}

// IsCrawled reports whether the page with the given URL is crawled.
func (s *SQLStore) IsCrawled(url string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var crawled bool
	err := s.db.QueryRowContext(ctx, s.rebind(isCrawledQuery), url).Scan(&crawled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		return false, fmt.Errorf("is crawled: %w", err)
	}

	return crawled, nil
}

// BlockURL adds url to the denylist and removes its page row along with any
// rows referencing it.
func (s *SQLStore) BlockURL(url string) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(s.rebind(blockURLQuery), url); err != nil {
			return err
		}

		var id int64
		err := tx.QueryRow(s.rebind(findPageIDQuery), url).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		} else if err != nil {
			return err
		}

		if _, err := tx.Exec(s.rebind(removeEdgesQuery), id, id); err != nil {
			return err
		}

		for _, query := range removePageQueries {
			if _, err := tx.Exec(s.rebind(query), id); err != nil {
				return err
			}
		}

		return nil
	}, "block url")
}

// AddLinks inserts the not-yet-known, non-blocked urls as pages and adds one
// edge from srcID to each of them. It returns the newly inserted urls.
func (s *SQLStore) AddLinks(srcID int64, urls []string) ([]string, error) {
	urls = dedup(urls)
	if len(urls) == 0 {
		return nil, nil
	}

	var added []string
	err := s.withTx(func(tx *sql.Tx) error {
		blocked, err := s.queryStrings(tx,
			"SELECT url FROM blocked_urls WHERE url IN ("+placeholders(len(urls))+")",
			stringArgs(urls)...,
		)
		if err != nil {
			return err
		}
		urls = without(urls, blocked)
		if len(urls) == 0 {
			return nil
		}

		insertQuery := "INSERT INTO pages (url) VALUES " + repeatTuple("(?)", len(urls)) +
			" ON CONFLICT (url) DO NOTHING RETURNING url"
		if added, err = s.queryStrings(tx, insertQuery, stringArgs(urls)...); err != nil {
			return err
		}

		rows, err := tx.Query(
			s.rebind("SELECT id, url FROM pages WHERE url IN ("+placeholders(len(urls))+")"),
			stringArgs(urls)...,
		)
		if err != nil {
			return err
		}
		ids := make(map[string]int64, len(urls))
		for rows.Next() {
			var (
				id int64
				u  string
			)
			if err := rows.Scan(&id, &u); err != nil {
				_ = rows.Close()
				return err
			}
			ids[u] = id
		}
		if err := rows.Close(); err != nil {
			return err
		}

		args := make([]interface{}, 0, 2*len(urls))
		for _, u := range urls {
			args = append(args, srcID, ids[u])
		}
		_, err = tx.Exec(
			s.rebind("INSERT INTO edges (source_id, target_id) VALUES "+repeatTuple("(?, ?)", len(urls))),
			args...,
		)

		return err
	}, "add links")
	if err != nil {
		return nil, err
	}

	return added, nil
}

// MarkNonHTML records a page as crawled without indexing its content.
func (s *SQLStore) MarkNonHTML(pageID int64, contentType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.rebind(markNonHTMLQuery), "Non-HTML", contentType, pageID)
	if err != nil {
		return fmt.Errorf("mark non-html page: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark non-html page: %w", err)
	} else if n == 0 {
		return fmt.Errorf("mark non-html page: %w", store.ErrNotFound)
	}

	return nil
}

// SaveIndexedPage stores the images, terms and postings of a page and marks
// it as crawled.
func (s *SQLStore) SaveIndexedPage(ip *store.IndexedPage) error {
	words := make([]string, 0, len(ip.Terms))
	for w := range ip.Terms {
		words = append(words, w)
	}
	// Upsert terms in a stable order so concurrent writers acquire row
	// locks in the same sequence.
	sort.Strings(words)

	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			s.rebind(markCrawledQuery), ip.Title, ip.Description, len(ip.Terms), ip.PageID,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return store.ErrNotFound
		}

		for _, img := range ip.Images {
			_, err := tx.Exec(
				s.rebind(insertImageQuery), img.URL, img.Title, img.Alt, img.Context, ip.PageID,
			)
			if err != nil {
				return err
			}
		}

		insertTerm, err := tx.Prepare(s.rebind(insertTermQuery))
		if err != nil {
			return err
		}
		defer func() { _ = insertTerm.Close() }()

		findTerm, err := tx.Prepare(s.rebind(findTermQuery))
		if err != nil {
			return err
		}
		defer func() { _ = findTerm.Close() }()

		upsertPosting, err := tx.Prepare(s.rebind(upsertPostingQuery))
		if err != nil {
			return err
		}
		defer func() { _ = upsertPosting.Close() }()

		for _, w := range words {
			if _, err := insertTerm.Exec(w); err != nil {
				return err
			}

			var termID int64
			if err := findTerm.QueryRow(w).Scan(&termID); err != nil {
				return err
			}

			if _, err := upsertPosting.Exec(termID, ip.PageID, ip.Terms[w]); err != nil {
				return err
			}
		}

		return nil
	}, "save indexed page")
}

// CrawledPageIDs returns the ids of all crawled pages.
func (s *SQLStore) CrawledPageIDs() ([]int64, error) {
	rows, err := s.db.Query(crawledPageIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("crawled page ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("crawled page ids: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("crawled page ids: %w", err)
	}

	return ids, nil
}

// Edges returns an iterator over all link graph edges.
func (s *SQLStore) Edges() (store.EdgeIterator, error) {
	rows, err := s.db.Query(edgesQuery)
	if err != nil {
		return nil, fmt.Errorf("edges: %w", err)
	}

	return &edgeIterator{rows: rows}, nil
}

// SaveRanks replaces the stored PageRank scores with ranks.
func (s *SQLStore) SaveRanks(ranks map[int64]float64) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(clearRanksQuery); err != nil {
			return err
		}

		stmt, err := tx.Prepare(s.rebind(insertRankQuery))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for id, rank := range ranks {
			if _, err := stmt.Exec(id, rank); err != nil {
				return err
			}
		}

		return nil
	}, "save ranks")
}

// Ranks returns the stored PageRank scores keyed by page id.
func (s *SQLStore) Ranks() (map[int64]float64, error) {
	ranks := make(map[int64]float64)
	if err := s.scanIDFloats(ranksQuery, ranks); err != nil {
		return nil, fmt.Errorf("ranks: %w", err)
	}

	return ranks, nil
}

// CountCrawled returns the number of crawled pages.
func (s *SQLStore) CountCrawled() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var count int
	if err := s.db.QueryRowContext(ctx, countCrawledQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("count crawled: %w", err)
	}

	return count, nil
}

// Postings returns an iterator over the postings of crawled pages with a
// non-zero word count.
func (s *SQLStore) Postings() (store.PostingIterator, error) {
	rows, err := s.db.Query(postingsQuery)
	if err != nil {
		return nil, fmt.Errorf("postings: %w", err)
	}

	return &postingIterator{rows: rows}, nil
}

// DocumentFrequencies returns the number of pages each term occurs in.
func (s *SQLStore) DocumentFrequencies() (map[int64]int, error) {
	rows, err := s.db.Query(documentFrequenciesQuery)
	if err != nil {
		return nil, fmt.Errorf("document frequencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	freqs := make(map[int64]int)
	for rows.Next() {
		var (
			termID int64
			count  int
		)
		if err := rows.Scan(&termID, &count); err != nil {
			return nil, fmt.Errorf("document frequencies: %w", err)
		}
		freqs[termID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document frequencies: %w", err)
	}

	return freqs, nil
}

// UpdatePostingScores writes scores onto their postings.
func (s *SQLStore) UpdatePostingScores(scores []store.PostingScore) error {
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(s.rebind(updatePostingScoreQuery))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, ps := range scores {
			if _, err := stmt.Exec(ps.Score, ps.TermID, ps.PageID); err != nil {
				return err
			}
		}

		return nil
	}, "update posting scores")
}

// PageScoreSums returns the sum of posting scores for each crawled page with
// at least one scored posting.
func (s *SQLStore) PageScoreSums() (map[int64]float64, error) {
	sums := make(map[int64]float64)
	if err := s.scanIDFloats(pageScoreSumsQuery, sums); err != nil {
		return nil, fmt.Errorf("page score sums: %w", err)
	}

	return sums, nil
}

// ClearFinalRanks resets the final rank of every page.
func (s *SQLStore) ClearFinalRanks() error {
	if _, err := s.db.Exec(clearFinalRanksQuery); err != nil {
		return fmt.Errorf("clear final ranks: %w", err)
	}

	return nil
}

// UpdateFinalRanks sets the final rank of each page in ranks.
func (s *SQLStore) UpdateFinalRanks(ranks map[int64]float64) error {
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(s.rebind(updateFinalRankQuery))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for id, rank := range ranks {
			if _, err := stmt.Exec(rank, id); err != nil {
				return err
			}
		}

		return nil
	}, "update final ranks")
}

// Search returns the pages having a posting for any of stems, ordered by
// descending final rank, along with the total number of matches.
func (s *SQLStore) Search(stems []string, offset, limit int) ([]*store.SearchResult, int, error) {
	if len(stems) == 0 {
		return nil, 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	in := placeholders(len(stems))
	args := stringArgs(stems)

	var total int
	err := s.db.QueryRowContext(ctx, s.rebind(fmt.Sprintf(countMatchesQuery, in)), args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	rows, err := s.db.QueryContext(
		ctx, s.rebind(fmt.Sprintf(searchQuery, in)), append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*store.SearchResult
	for rows.Next() {
		var (
			title, desc sql.NullString
			rank        sql.NullFloat64
			r           = new(store.SearchResult)
		)
		if err := rows.Scan(&title, &r.URL, &desc, &rank); err != nil {
			return nil, 0, fmt.Errorf("search: %w", err)
		}

		r.Title, r.Description = title.String, desc.String
		if rank.Valid {
			r.FinalRank = &rank.Float64
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	return results, total, nil
}

// RandomPage returns the URL of a random crawled page.
func (s *SQLStore) RandomPage() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var url string
	if err := s.db.QueryRowContext(ctx, randomPageQuery).Scan(&url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("random page: %w", store.ErrNotFound)
		}

		return "", fmt.Errorf("random page: %w", err)
	}

	return url, nil
}

// SearchImages returns images whose context contains text.
func (s *SQLStore) SearchImages(text string, offset, limit int) ([]*store.ImageResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	rows, err := s.db.QueryContext(ctx, s.rebind(searchImagesQuery), pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*store.ImageResult
	for rows.Next() {
		var (
			alt sql.NullString
			r   = new(store.ImageResult)
		)
		if err := rows.Scan(&r.URL, &alt, &r.SourcePageID); err != nil {
			return nil, fmt.Errorf("search images: %w", err)
		}
		r.Alt = alt.String
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}

	return results, nil
}

// withTx runs fn inside a transaction that is committed when fn succeeds and
// rolled back otherwise.
func (s *SQLStore) withTx(fn func(tx *sql.Tx) error, op string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *SQLStore) queryStrings(tx *sql.Tx, query string, args ...interface{}) ([]string, error) {
	rows, err := tx.Query(s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var list []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		list = append(list, v)
	}

	return list, rows.Err()
}

func (s *SQLStore) scanIDFloats(query string, dst map[int64]float64) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id int64
			v  float64
		)
		if err := rows.Scan(&id, &v); err != nil {
			return err
		}
		dst[id] = v
	}

	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func repeatTuple(tuple string, n int) string {
	return strings.TrimSuffix(strings.Repeat(tuple+", ", n), ", ")
}

func stringArgs(list []string) []interface{} {
	args := make([]interface{}, len(list))
	for i, v := range list {
		args[i] = v
	}

	return args
}

func dedup(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}

func without(list, drop []string) []string {
	if len(drop) == 0 {
		return list
	}

	skip := make(map[string]struct{}, len(drop))
	for _, v := range drop {
		skip[v] = struct{}{}
	}

	out := list[:0]
	for _, v := range list {
		if _, exists := skip[v]; !exists {
			out = append(out, v)
		}
	}

	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
