package kernel

// Semaphore is a counting semaphore. Waiters are kept in the order they first
// waited; every signal re-polls all of them and each takes its amount if the
// count still allows it.
type Semaphore struct {
	ID           int
	Name         string
	Attributes   uint32
	InitialCount int32
	Count        int32
	MaxCount     int32
	active       bool
	waiters      []*Thread
}

func (s *Semaphore) WaitingThreads() int {
	return len(s.waiters)
}

// SemaphoreInfo is the SceKernelSemaInfo layout.
type SemaphoreInfo struct {
	Size           uint32
	Name           [32]byte
	Attributes     uint32
	InitialCount   int32
	CurrentCount   int32
	MaxCount       int32
	NumWaitThreads int32
}

const semaphoreInfoSize = 0x38

func (s *Semaphore) info() SemaphoreInfo {
	info := SemaphoreInfo{
		Size:           semaphoreInfoSize,
		Attributes:     s.Attributes,
		InitialCount:   s.InitialCount,
		CurrentCount:   s.Count,
		MaxCount:       s.MaxCount,
		NumWaitThreads: int32(len(s.waiters)),
	}
	copy(info.Name[:31], s.Name)
	return info
}

func (tm *ThreadManager) Semaphore(id int) (*Semaphore, bool) {
	s, ok := tm.semaphores[id]
	return s, ok
}

func (tm *ThreadManager) CreateSemaphore(name string, attr uint32, initial, max int32) (*Semaphore, error) {
	if initial < 0 || max <= 0 || initial > max {
		return nil, ErrIllegalCount
	}
	s := &Semaphore{
		ID:           tm.allocUID(),
		Name:         name,
		Attributes:   attr,
		InitialCount: initial,
		Count:        initial,
		MaxCount:     max,
		active:       true,
	}
	tm.semaphores[s.ID] = s
	return s, nil
}

// SignalSemaphore adds amount, clamped to the maximum, and re-polls waiters.
func (tm *ThreadManager) SignalSemaphore(id int, amount int32) error {
	s, ok := tm.semaphores[id]
	if !ok {
		return ErrNotFoundSemaphore
	}
	if amount < 0 {
		return ErrIllegalCount
	}
	if amount > s.MaxCount-s.Count {
		s.Count = s.MaxCount
	} else {
		s.Count += amount
	}
	tm.wakeSemaphore(s)
	return nil
}

// DeleteSemaphore deactivates s; its waiters fail with ErrWaitDelete.
func (tm *ThreadManager) DeleteSemaphore(id int) error {
	s, ok := tm.semaphores[id]
	if !ok {
		return ErrNotFoundSemaphore
	}
	s.active = false
	delete(tm.semaphores, id)
	tm.wakeSemaphore(s)
	return nil
}

func (tm *ThreadManager) wakeSemaphore(s *Semaphore) {
	waiters := append([]*Thread(nil), s.waiters...)
	for _, t := range waiters {
		tm.retry(t)
	}
}

// PollSemaphore takes amount without blocking.
func (tm *ThreadManager) PollSemaphore(id int, amount int32) error {
	s, ok := tm.semaphores[id]
	if !ok {
		return ErrNotFoundSemaphore
	}
	if amount <= 0 {
		return ErrIllegalCount
	}
	if s.Count < amount {
		return ErrSemaZero
	}
	s.Count -= amount
	return nil
}

// WaitSemaphore returns the resumable for a wait on id by t. A zero timeout
// waits forever, otherwise the wait fails with ErrWaitTimeout once timeout
// microseconds pass. remaining is told the time left when a timed wait ends.
func (tm *ThreadManager) WaitSemaphore(t *Thread, id int, amount int32, timeout uint32, callbacks bool, remaining func(uint32)) *Resumable {
	s, ok := tm.semaphores[id]
	if !ok {
		return Failed(ErrNotFoundSemaphore)
	}
	if amount <= 0 || amount > s.MaxCount {
		return Failed(ErrIllegalCount)
	}

	var deadline uint64
	if timeout != 0 {
		deadline = tm.clock.Now() + uint64(timeout)
	}
	waiting := false
	leave := func() {
		if !waiting {
			return
		}
		waiting = false
		for i, w := range s.waiters {
			if w == t {
				s.waiters = append(s.waiters[:i:i], s.waiters[i+1:]...)
				break
			}
		}
	}
	report := func() {
		if remaining == nil || deadline == 0 {
			return
		}
		now := tm.clock.Now()
		left := uint32(0)
		if now < deadline {
			left = uint32(deadline - now)
		}
		remaining(left)
	}

	return &Resumable{
		Reason:    WaitReason{Kind: WaitSemaphore, Object: id, Deadline: deadline},
		Callbacks: callbacks,
		Poll: func() (int64, bool) {
			switch {
			case !s.active:
				leave()
				return int64(ErrWaitDelete), true
			case s.Count >= amount:
				s.Count -= amount
				leave()
				report()
				return 0, true
			case deadline != 0 && tm.clock.Now() >= deadline:
				leave()
				report()
				return int64(ErrWaitTimeout), true
			}
			if !waiting {
				waiting = true
				s.waiters = append(s.waiters, t)
			}
			return 0, false
		},
		Cancel: leave,
	}
}
