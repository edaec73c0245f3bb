package qblock

// Arena owns every queue produced by one partitioning pass.
type Arena struct {
	queues []*Queue
}

// Len returns the number of queues in the arena.
func (a *Arena) Len() int {
	if a == nil {
		return 0
	}
	return len(a.queues)
}

// Queue returns the queue behind a handle.
func (a *Arena) Queue(handle int) *Queue {
	if a == nil || handle < 0 || handle >= len(a.queues) {
		return nil
	}
	return a.queues[handle]
}

// Drained reports whether every queue has been fully consumed.
func (a *Arena) Drained() bool {
	for _, q := range a.queues {
		if !q.Empty() {
			return false
		}
	}
	return true
}

// Sequence returns a sequence over every queue of the arena, in partition order.
func (a *Arena) Sequence() *Sequence {
	seq := &Sequence{arena: a}
	for i := range a.Len() {
		seq.handles = append(seq.handles, i)
	}
	return seq
}

// Sequence is an ordered list of queue handles. It is shared by pointer during a build,
// so removals made by one holder are seen by every other holder.
type Sequence struct {
	arena   *Arena
	handles []int
}

// Single returns a new sequence that holds only the given queue handle.
func (s *Sequence) Single(handle int) *Sequence {
	return &Sequence{arena: s.arena, handles: []int{handle}}
}

// Len returns the number of queues still in the sequence.
func (s *Sequence) Len() int {
	return len(s.handles)
}

// Front returns the first queue of the sequence, or nil when the sequence is empty.
func (s *Sequence) Front() *Queue {
	if len(s.handles) == 0 {
		return nil
	}
	return s.arena.Queue(s.handles[0])
}

// Queues returns the queues still in the sequence, in order.
func (s *Sequence) Queues() []*Queue {
	out := make([]*Queue, 0, len(s.handles))
	for _, h := range s.handles {
		out = append(out, s.arena.Queue(h))
	}
	return out
}

// DropExhausted removes empty queues from the front of the sequence.
func (s *Sequence) DropExhausted() {
	for len(s.handles) > 0 && s.arena.Queue(s.handles[0]).Empty() {
		s.handles = s.handles[1:]
	}
}

// Take searches every queue after the front one for the first non-empty queue whose
// head row belongs to blockID, removes it from the sequence and returns its handle.
func (s *Sequence) Take(blockID int) (int, bool) {
	for i := 1; i < len(s.handles); i++ {
		head, ok := s.arena.Queue(s.handles[i]).Peek()
		if !ok || head.QueryBlock != blockID {
			continue
		}
		handle := s.handles[i]
		s.handles = append(s.handles[:i:i], s.handles[i+1:]...)
		return handle, true
	}
	return 0, false
}
