package database

// sqliteStore bundles the SQLite-backed repositories.
type sqliteStore struct {
	db       *DB
	calls    CallLogRepository
	messages MessageLogRepository
	parties  PartyRepository
}

// NewStore returns a Store backed by the given SQLite database.
func NewStore(db *DB) Store {
	return &sqliteStore{
		db:       db,
		calls:    NewCallLogRepository(db),
		messages: NewMessageLogRepository(db),
		parties:  NewPartyRepository(db),
	}
}

func (s *sqliteStore) Calls() CallLogRepository       { return s.calls }
func (s *sqliteStore) Messages() MessageLogRepository { return s.messages }
func (s *sqliteStore) Parties() PartyRepository       { return s.parties }
func (s *sqliteStore) Close() error                   { return s.db.Close() }
