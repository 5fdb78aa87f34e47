package store

const Schema = `
CREATE TABLE IF NOT EXISTS songs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT,
	key_name TEXT,
	tempo INTEGER DEFAULT 0,
	time_signature TEXT,
	capo INTEGER DEFAULT 0,
	lyrics TEXT,
	chord_sheet TEXT,
	tags TEXT,  -- JSON array
	is_favorite BOOLEAN DEFAULT 0,
	access_count INTEGER DEFAULT 0,
	last_accessed_at DATETIME,
	file_size INTEGER DEFAULT 0,
	checksum TEXT,
	server_id TEXT,
	server_version INTEGER DEFAULT 0,
	sync_status TEXT NOT NULL,
	last_synced_at DATETIME,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_songs_key_name ON songs(key_name);
CREATE INDEX IF NOT EXISTS idx_songs_sync_status ON songs(sync_status);
CREATE INDEX IF NOT EXISTS idx_songs_last_accessed_at ON songs(last_accessed_at);

CREATE TABLE IF NOT EXISTS setlists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	created_by TEXT,
	items TEXT,  -- JSON array of setlist items
	is_public BOOLEAN DEFAULT 0,
	share_token TEXT,
	usage_count INTEGER DEFAULT 0,
	last_used_at DATETIME,
	server_id TEXT,
	server_version INTEGER DEFAULT 0,
	sync_status TEXT NOT NULL,
	last_synced_at DATETIME,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_setlists_created_by ON setlists(created_by);

CREATE TABLE IF NOT EXISTS preferences (
	user_id TEXT PRIMARY KEY,
	theme TEXT,
	font_size INTEGER DEFAULT 0,
	chord_style TEXT,
	default_key TEXT,
	auto_sync BOOLEAN DEFAULT 1,
	sync_on_cellular BOOLEAN DEFAULT 0,
	export_format TEXT,
	export_with_chords BOOLEAN DEFAULT 1,
	sync_status TEXT NOT NULL,
	last_synced_at DATETIME,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_queue (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	type TEXT NOT NULL,
	resource TEXT NOT NULL,
	entity_id TEXT,
	data BLOB,
	status TEXT NOT NULL,
	retry_count INTEGER DEFAULT 0,
	max_retries INTEGER NOT NULL,
	last_error TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value BLOB,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
