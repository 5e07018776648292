//go:build linux
// +build linux

// File: internal/transport/poller_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Edge-triggered epoll demultiplexer with an eventfd used to interrupt a
// blocked Wait.

package transport

import (
	"encoding/binary"
	"errors"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// wakeToken identifies the eventfd inside the interest set.
const wakeToken = 0

// Poller wraps one epoll instance.
type Poller struct {
	epfd   int
	evfd   int
	events []unix.EpollEvent
}

// NewPoller creates the epoll instance and its wake-up eventfd. batch
// bounds the events returned by a single Wait.
func NewPoller(batch int) (*Poller, error) {
	if batch <= 0 {
		batch = DefaultBatch
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, Wrap("epoll_create", err)
	}
	evfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, Wrap("eventfd", err)
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN}
	setToken(ev, wakeToken)
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, evfd, ev); err != nil {
		unix.Close(evfd)
		unix.Close(epfd)
		return nil, Wrap("epoll_ctl", err)
	}
	return &Poller{epfd: epfd, evfd: evfd, events: make([]unix.EpollEvent, batch)}, nil
}

// Add registers fd for read and write readiness in edge-triggered mode.
// token must not be zero.
func (p *Poller) Add(fd int, token uint64) error {
	ev := &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
	}
	setToken(ev, token)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return Wrap("epoll_ctl", err)
	}
	return nil
}

// Remove drops fd from the interest set.
func (p *Poller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return Wrap("epoll_ctl", err)
	}
	return nil
}

// Wait blocks for up to timeout (negative means forever) and fills out with
// at most len(out) events. A Wake call makes it return early, possibly with
// zero events.
func (p *Poller) Wait(timeout time.Duration, out []Event) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	max := len(p.events)
	if len(out) < max {
		max = len(out)
	}
	n, err := unix.EpollWait(p.epfd, p.events[:max], ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, Wrap("epoll_wait", err)
	}
	k := 0
	for i := 0; i < n; i++ {
		raw := &p.events[i]
		tok := token(raw)
		if tok == wakeToken {
			p.drainWake()
			continue
		}
		out[k] = Event{
			Token:    tok,
			Readable: raw.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLPRI) != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
			Hangup:   raw.Events&unix.EPOLLHUP != 0,
			Error:    raw.Events&unix.EPOLLERR != 0,
		}
		k++
	}
	return k, nil
}

// Wake interrupts a concurrent Wait.
func (p *Poller) Wake() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.evfd, buf[:])
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return Wrap("eventfd_write", err)
	}
	return nil
}

// Close releases the epoll instance and the eventfd.
func (p *Poller) Close() error {
	return multierr.Append(unix.Close(p.evfd), unix.Close(p.epfd))
}

func (p *Poller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.evfd, buf[:]); err != nil {
			return
		}
	}
}

func setToken(ev *unix.EpollEvent, tok uint64) {
	ev.Fd = int32(uint32(tok))
	ev.Pad = int32(uint32(tok >> 32))
}

func token(ev *unix.EpollEvent) uint64 {
	return uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32
}
