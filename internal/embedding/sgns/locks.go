package sgns

import "sync"

// rowLocks guards individual matrix rows. Callers never hold more than one
// row lock at a time.
type rowLocks interface {
	lock(matrix, row int)
	unlock(matrix, row int)
}

type noLocks struct{}

func (noLocks) lock(int, int)   {}
func (noLocks) unlock(int, int) {}

// stripedLocks maps rows onto a fixed set of mutexes per matrix.
type stripedLocks struct {
	stripes [2][]sync.Mutex
}

func newStripedLocks(n int) *stripedLocks {
	if n <= 0 {
		n = 1024
	}
	l := &stripedLocks{}
	for m := range l.stripes {
		l.stripes[m] = make([]sync.Mutex, n)
	}
	return l
}

func (l *stripedLocks) lock(matrix, row int) {
	s := l.stripes[matrix]
	s[row%len(s)].Lock()
}

func (l *stripedLocks) unlock(matrix, row int) {
	s := l.stripes[matrix]
	s[row%len(s)].Unlock()
}
