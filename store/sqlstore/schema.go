package sqlstore

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		description TEXT,
		word_count INTEGER,
		final_rank REAL DEFAULT NULL,
		crawled BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS pages_crawled_idx ON pages (crawled)`,
	`CREATE TABLE IF NOT EXISTS terms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS postings (
		term_id INTEGER NOT NULL REFERENCES terms (id),
		page_id INTEGER NOT NULL REFERENCES pages (id),
		frequency INTEGER NOT NULL DEFAULT 1,
		score REAL DEFAULT NULL,
		UNIQUE (term_id, page_id)
	)`,
	`CREATE INDEX IF NOT EXISTS postings_page_idx ON postings (page_id)`,
	`CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		alt TEXT,
		context TEXT,
		source_page_id INTEGER NOT NULL REFERENCES pages (id),
		image_url TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS blocked_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		source_id INTEGER NOT NULL REFERENCES pages (id),
		target_id INTEGER NOT NULL REFERENCES pages (id)
	)`,
	`CREATE INDEX IF NOT EXISTS edges_source_idx ON edges (source_id)`,
	`CREATE INDEX IF NOT EXISTS edges_target_idx ON edges (target_id)`,
	`CREATE TABLE IF NOT EXISTS ranks (
		url_id INTEGER NOT NULL UNIQUE REFERENCES pages (id),
		rank REAL NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		description TEXT,
		word_count INTEGER,
		final_rank DOUBLE PRECISION DEFAULT NULL,
		crawled BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS pages_crawled_idx ON pages (crawled)`,
	`CREATE TABLE IF NOT EXISTS terms (
		id BIGSERIAL PRIMARY KEY,
		word TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS postings (
		term_id BIGINT NOT NULL REFERENCES terms (id),
		page_id BIGINT NOT NULL REFERENCES pages (id),
		frequency INTEGER NOT NULL DEFAULT 1,
		score DOUBLE PRECISION DEFAULT NULL,
		UNIQUE (term_id, page_id)
	)`,
	`CREATE INDEX IF NOT EXISTS postings_page_idx ON postings (page_id)`,
	`CREATE TABLE IF NOT EXISTS images (
		id BIGSERIAL PRIMARY KEY,
		title TEXT,
		alt TEXT,
		context TEXT,
		source_page_id BIGINT NOT NULL REFERENCES pages (id),
		image_url TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS blocked_urls (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		source_id BIGINT NOT NULL REFERENCES pages (id),
		target_id BIGINT NOT NULL REFERENCES pages (id)
	)`,
	`CREATE INDEX IF NOT EXISTS edges_source_idx ON edges (source_id)`,
	`CREATE INDEX IF NOT EXISTS edges_target_idx ON edges (target_id)`,
	`CREATE TABLE IF NOT EXISTS ranks (
		url_id BIGINT NOT NULL UNIQUE REFERENCES pages (id),
		rank DOUBLE PRECISION NOT NULL
	)`,
}

// tableNames lists every table in the order they can be truncated without
// violating foreign key constraints.
var tableNames = []string{
	"ranks", "edges", "images", "postings", "terms", "blocked_urls", "pages",
}
