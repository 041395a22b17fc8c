package schedule

import "sync"

// Sequencer orders asynchronous completions. Each started operation takes a
// token from Next; when it finishes, Commit accepts its result only if no
// newer operation has already committed.
type Sequencer struct {
	mu        sync.Mutex
	issued    uint64
	committed uint64
}

// Next issues a token greater than every token issued before.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit reports whether tok is newer than the last committed token and, if
// so, records it.
func (s *Sequencer) Commit(tok uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok <= s.committed {
		return false
	}
	s.committed = tok
	return true
}

// Latest reports whether tok is the most recently issued token.
func (s *Sequencer) Latest(tok uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tok == s.issued
}
