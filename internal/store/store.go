package store

// Store provides access to all in-memory repositories of the fake platform.
type Store struct {
	workspaces *WorkspaceStore
	users      *UserStore
}

type Option func(*Store)

// WithStartDelay sets how many status reads a starting workspace stays in
// STARTING before it reports RUNNING.
func WithStartDelay(reads int) Option {
	return func(s *Store) {
		s.workspaces.startDelay = reads
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		workspaces: NewWorkspaceStore(),
		users:      NewUserStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Workspaces() *WorkspaceStore {
	return s.workspaces
}

func (s *Store) Users() *UserStore {
	return s.users
}
