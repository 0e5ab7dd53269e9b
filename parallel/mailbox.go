package parallel

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAborted is returned by blocking mailbox operations once any rank has aborted
var ErrAborted = errors.New("communicator aborted")

// MailBox carries messages between NP ranks over one buffered channel per
// ordered rank pair. Messages between a pair are delivered in post order.
type MailBox[T any] struct {
	NP           int
	MessageChans [][]chan T // [source][target]

	done      chan struct{}
	abortOnce sync.Once
}

// NewMailBox allocates channels able to hold depth undelivered messages per pair
func NewMailBox[T any](NP, depth int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:           NP,
		MessageChans: make([][]chan T, NP),
		done:         make(chan struct{}),
	}
	for src := 0; src < NP; src++ {
		mb.MessageChans[src] = make([]chan T, NP)
		for tgt := 0; tgt < NP; tgt++ {
			if tgt != src {
				mb.MessageChans[src][tgt] = make(chan T, depth)
			}
		}
	}
	return mb
}

func (mb *MailBox[T]) checkRanks(a, b int) {
	if a < 0 || a >= mb.NP || b < 0 || b >= mb.NP || a == b {
		panic(fmt.Sprintf("invalid rank pair %d, %d for %d ranks", a, b, mb.NP))
	}
}

func (mb *MailBox[T]) PostMessage(myRank, targetRank int, msg T) error {
	mb.checkRanks(myRank, targetRank)
	select {
	case mb.MessageChans[myRank][targetRank] <- msg:
		return nil
	case <-mb.done:
		return ErrAborted
	}
}

func (mb *MailBox[T]) PostMessageToAll(myRank int, msg T) error {
	for k := 0; k < mb.NP; k++ {
		if k != myRank {
			if err := mb.PostMessage(myRank, k, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReceiveMessage blocks until the next message from sourceRank arrives
func (mb *MailBox[T]) ReceiveMessage(myRank, sourceRank int) (msg T, err error) {
	mb.checkRanks(myRank, sourceRank)
	select {
	case msg = <-mb.MessageChans[sourceRank][myRank]:
		return msg, nil
	case <-mb.done:
		return msg, ErrAborted
	}
}

// Abort releases every rank blocked in the mailbox
func (mb *MailBox[T]) Abort() {
	mb.abortOnce.Do(func() { close(mb.done) })
}
