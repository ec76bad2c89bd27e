package storage

const Schema = `
CREATE TABLE IF NOT EXISTS fetched_dates (
    date TEXT PRIMARY KEY,
    article_count INTEGER NOT NULL DEFAULT 0,
    fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS articles (
    date TEXT NOT NULL,
    content_key TEXT NOT NULL,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    url TEXT NOT NULL,
    body TEXT,
    sentiment TEXT,
    entities TEXT,
    enriched_at DATETIME,
    enrich_attempts INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (date, content_key)
);

CREATE INDEX IF NOT EXISTS idx_articles_content_key ON articles(content_key, date);
CREATE INDEX IF NOT EXISTS idx_articles_date_position ON articles(date, position);

CREATE TABLE IF NOT EXISTS preferences (
    user_id TEXT NOT NULL,
    content_key TEXT NOT NULL,
    label TEXT NOT NULL CHECK (label IN ('like', 'dislike', 'uncertain')),
    title TEXT NOT NULL,
    publish_date TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, content_key)
);

CREATE INDEX IF NOT EXISTS idx_preferences_partition ON preferences(user_id, label);
`
