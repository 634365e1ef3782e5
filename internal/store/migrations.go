package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create tickets, sessions and session messages",
		SQL: `
			CREATE TABLE tickets (
				id            TEXT PRIMARY KEY,
				tenant_id     TEXT NOT NULL DEFAULT '',
				subject       TEXT NOT NULL,
				body          TEXT NOT NULL DEFAULT '',
				category      TEXT NOT NULL DEFAULT 'general',
				priority      TEXT NOT NULL DEFAULT 'low',
				status        TEXT NOT NULL DEFAULT 'open',
				requester_id  TEXT NOT NULL,
				assignee_id   TEXT NOT NULL DEFAULT '',
				session_id    TEXT NOT NULL DEFAULT '',
				source        TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_tickets_status ON tickets (status);
			CREATE INDEX idx_tickets_category ON tickets (category);
			CREATE INDEX idx_tickets_assignee ON tickets (assignee_id);

			CREATE TABLE chat_sessions (
				id                 TEXT PRIMARY KEY,
				tenant_id          TEXT NOT NULL DEFAULT '',
				user_id            TEXT NOT NULL,
				user_name          TEXT NOT NULL DEFAULT '',
				agent_id           TEXT NOT NULL DEFAULT '',
				status             TEXT NOT NULL,
				category           TEXT NOT NULL DEFAULT 'general',
				priority           TEXT NOT NULL DEFAULT 'low',
				escalation_score   REAL NOT NULL DEFAULT 0,
				ticket_id          TEXT NOT NULL DEFAULT '',
				resolution         TEXT NOT NULL DEFAULT '',
				created_at         TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at         TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_sessions_status ON chat_sessions (status);
			CREATE INDEX idx_sessions_agent ON chat_sessions (agent_id);

			CREATE TABLE session_messages (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				message_id   TEXT NOT NULL,
				session_id   TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
				sender_id    TEXT NOT NULL,
				sender_name  TEXT NOT NULL DEFAULT '',
				sender_type  TEXT NOT NULL,
				body         TEXT NOT NULL,
				kind         TEXT NOT NULL DEFAULT 'text',
				meta         TEXT,
				timestamp    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_session ON session_messages (session_id, id);
		`,
	},
	{
		Version: 2,
		Name:    "create escalation outcomes",
		SQL: `
			CREATE TABLE escalation_outcomes (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL DEFAULT '',
				category    TEXT NOT NULL,
				priority    TEXT NOT NULL DEFAULT 'low',
				escalated   INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_outcomes_category ON escalation_outcomes (category);
		`,
	},
}
