package store

const schema = `
CREATE TABLE IF NOT EXISTS news_items (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol        TEXT NOT NULL,
    source        TEXT NOT NULL,
    source_name   TEXT NOT NULL DEFAULT '',
    title         TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL DEFAULT '',
    published_at  DATETIME NOT NULL,
    sentiment     REAL NOT NULL DEFAULT 0,
    confidence    REAL NOT NULL DEFAULT 0,
    credibility   REAL NOT NULL DEFAULT 0.5,
    content_hash  TEXT NOT NULL,
    duplicate     BOOLEAN NOT NULL DEFAULT 0,
    ingested_at   DATETIME NOT NULL,
    UNIQUE(symbol, content_hash)
);

CREATE INDEX IF NOT EXISTS idx_news_symbol ON news_items(symbol);
CREATE INDEX IF NOT EXISTS idx_news_published ON news_items(published_at);

CREATE TABLE IF NOT EXISTS social_posts (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol           TEXT NOT NULL,
    source_post_id   TEXT NOT NULL,
    author           TEXT NOT NULL DEFAULT '',
    created_at       DATETIME NOT NULL,
    karma            INTEGER NOT NULL DEFAULT 0,
    account_age_days INTEGER NOT NULL DEFAULT 0,
    sentiment        REAL NOT NULL DEFAULT 0,
    is_bot           BOOLEAN NOT NULL DEFAULT 0,
    is_spam          BOOLEAN NOT NULL DEFAULT 0,
    duplicate_text   BOOLEAN NOT NULL DEFAULT 0,
    burst_cluster    BOOLEAN NOT NULL DEFAULT 0,
    content_hash     TEXT NOT NULL,
    num_comments     INTEGER NOT NULL DEFAULT 0,
    permalink        TEXT NOT NULL DEFAULT '',
    ingested_at      DATETIME NOT NULL,
    UNIQUE(symbol, source_post_id)
);

CREATE INDEX IF NOT EXISTS idx_social_symbol ON social_posts(symbol);
CREATE INDEX IF NOT EXISTS idx_social_created ON social_posts(created_at);

CREATE TABLE IF NOT EXISTS trust_scores (
    symbol       TEXT NOT NULL,
    as_of_date   TEXT NOT NULL,
    trust_score  REAL NOT NULL,
    trust_band   TEXT NOT NULL,
    confidence   REAL NOT NULL,
    limited_data BOOLEAN NOT NULL DEFAULT 0,
    stale_data   BOOLEAN NOT NULL DEFAULT 0,
    components   TEXT NOT NULL DEFAULT '{}',
    explanations TEXT NOT NULL DEFAULT '[]',
    created_at   DATETIME NOT NULL,
    PRIMARY KEY (symbol, as_of_date)
);

CREATE INDEX IF NOT EXISTS idx_trust_date ON trust_scores(as_of_date);

CREATE TABLE IF NOT EXISTS social_daily (
    symbol        TEXT NOT NULL,
    as_of_date    TEXT NOT NULL,
    bullish_pct   REAL NOT NULL DEFAULT 0,
    bearish_pct   REAL NOT NULL DEFAULT 0,
    hype_velocity REAL NOT NULL DEFAULT 0,
    confidence    REAL NOT NULL DEFAULT 0,
    meme_risk     BOOLEAN NOT NULL DEFAULT 0,
    spike         BOOLEAN NOT NULL DEFAULT 0,
    stale         BOOLEAN NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL,
    PRIMARY KEY (symbol, as_of_date)
);

CREATE TABLE IF NOT EXISTS source_credibility (
    domain TEXT PRIMARY KEY,
    weight REAL NOT NULL
);
`
