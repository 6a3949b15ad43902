// Package server implements the single-threaded connection multiplexer: one
// epoll loop drives a listening socket and a fixed table of client slots.
// Payload handling is delegated to a Handlers bundle; this package never
// interprets the bytes it delivers.
package server

import (
	"fmt"
	"log"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"warpout-core/internal/metrics"
)

// TCP keepalive tuning applied to every accepted connection.
const (
	keepaliveIdle     = 10 // seconds before the first probe
	keepaliveInterval = 5  // seconds between probes
	keepaliveProbes   = 5  // unanswered probes before the kernel gives up
)

// Handlers is the callback bundle implemented by the report-interpretation
// layer. All callbacks run on the loop goroutine.
type Handlers struct {
	// OnConnect runs once per accepted connection and returns the opaque
	// per-connection context stored in the slot.
	OnConnect func(fd int) any
	// OnDisconnect runs exactly once per slot teardown and must release
	// whatever the context owns.
	OnDisconnect func(ctx any)
	// OnReadData runs when the connection may have bytes available. The
	// loop is edge-triggered, so the handler must drain the socket until
	// EAGAIN. Returning false closes the connection.
	OnReadData func(fd int, ctx any) bool
}

// slot is one entry of the fixed client table. A slot is reusable the moment
// teardown completes.
type slot struct {
	inUse bool
	fd    int
	ctx   any
}

// Server owns the listening socket, the epoll instance and the slot table.
// The table is touched only by the Run goroutine.
type Server struct {
	fd         int
	epollFd    int
	port       uint16
	maxClients int
	handlers   Handlers
	slots      []slot
}

// Create binds a listening socket and allocates the slot table. bindTarget is
// either an IPv4 literal or an interface name; an interface name is resolved
// via netlink and applied with SO_BINDTODEVICE, falling back to the wildcard
// address if that fails.
func Create(bindTarget string, port uint16, maxClients int, handlers Handlers) (*Server, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("SO_REUSEPORT: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: int(port)}
	if ip := net.ParseIP(bindTarget); ip != nil && ip.To4() != nil {
		copy(sa.Addr[:], ip.To4())
	} else {
		// Not an address literal; treat it as an interface name.
		if err := bindToDevice(fd, bindTarget); err != nil {
			log.Printf("warning: bind to device %q failed, using wildcard: %v", bindTarget, err)
		}
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s:%d: %w", bindTarget, port, err)
	}
	if err := unix.Listen(fd, maxClients); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}

	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	if err := epollAdd(epollFd, fd); err != nil {
		unix.Close(epollFd)
		unix.Close(fd)
		return nil, err
	}

	s := &Server{
		fd:         fd,
		epollFd:    epollFd,
		port:       port,
		maxClients: maxClients,
		handlers:   handlers,
		slots:      make([]slot, maxClients),
	}
	for i := range s.slots {
		s.slots[i].fd = -1
	}
	return s, nil
}

// Port returns the bound local port. Useful when Create was given port 0.
func (s *Server) Port() (uint16, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return 0, fmt.Errorf("getsockname: %w", err)
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("unexpected sockaddr %T", sa)
	}
	return uint16(sa4.Port), nil
}

// Run drives the event loop. It blocks until the readiness wait or accept
// fails; per-connection errors only tear down their own slot.
func (s *Server) Run() error {
	events := make([]unix.EpollEvent, 1)
	for {
		n, err := unix.EpollWait(s.epollFd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("epoll_wait: %w", err)
		}
		if n == 0 {
			continue
		}

		ev := events[0]
		if int(ev.Fd) == s.fd {
			cfd, _, err := unix.Accept4(s.fd, unix.SOCK_CLOEXEC)
			if err != nil {
				return fmt.Errorf("accept: %w", err)
			}
			s.acceptClient(cfd)
			continue
		}
		s.handleClientEvent(int(ev.Fd), ev.Events)
	}
}

// acceptClient claims a free slot for cfd, or refuses the connection when
// the table is full. No handler runs for a refused connection.
func (s *Server) acceptClient(cfd int) {
	for i := range s.slots {
		if s.slots[i].inUse {
			continue
		}
		if err := prepareClient(cfd); err != nil {
			log.Printf("client fd %d setup failed: %v", cfd, err)
			unix.Close(cfd)
			return
		}
		if err := epollAdd(s.epollFd, cfd); err != nil {
			log.Printf("client fd %d: %v", cfd, err)
			unix.Close(cfd)
			return
		}
		s.slots[i].inUse = true
		s.slots[i].fd = cfd
		s.slots[i].ctx = s.handlers.OnConnect(cfd)
		metrics.ActiveClients.Inc()
		return
	}
	log.Printf("refused connection fd %d: server full", cfd)
	metrics.RefusedConnections.Inc()
	unix.Close(cfd)
}

// handleClientEvent routes one readiness event to the owning slot. Hangup
// and error flags take precedence over pending data.
func (s *Server) handleClientEvent(fd int, flags uint32) {
	for i := range s.slots {
		if !s.slots[i].inUse || s.slots[i].fd != fd {
			continue
		}
		closed := false
		if flags&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 {
			closed = true
		} else if flags&unix.EPOLLIN != 0 {
			closed = !s.handlers.OnReadData(fd, s.slots[i].ctx)
		}
		if closed {
			s.disconnectSlot(i)
		}
		return
	}
	// A teardown can race an already-reported event for the same fd; the
	// slot scan coming up empty just means the event is stale.
}

// disconnectSlot tears down slot i: disconnect callback first, then the
// socket, then the slot itself becomes reusable.
func (s *Server) disconnectSlot(i int) {
	s.handlers.OnDisconnect(s.slots[i].ctx)
	if err := unix.EpollCtl(s.epollFd, unix.EPOLL_CTL_DEL, s.slots[i].fd, nil); err != nil {
		log.Printf("epoll del fd %d: %v", s.slots[i].fd, err)
	}
	unix.Close(s.slots[i].fd)
	s.slots[i].inUse = false
	s.slots[i].fd = -1
	s.slots[i].ctx = nil
	metrics.ActiveClients.Dec()
}

// prepareClient makes the socket non-blocking and enables tuned keepalive.
func prepareClient(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set nonblock: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return fmt.Errorf("SO_KEEPALIVE: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepaliveIdle); err != nil {
		return fmt.Errorf("TCP_KEEPIDLE: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepaliveInterval); err != nil {
		return fmt.Errorf("TCP_KEEPINTVL: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepaliveProbes); err != nil {
		return fmt.Errorf("TCP_KEEPCNT: %w", err)
	}
	return nil
}

// epollAdd registers fd for edge-triggered readability and hangup flags.
func epollAdd(epollFd, fd int) error {
	ev := unix.EpollEvent{
		Events: uint32(unix.EPOLLIN | unix.EPOLLERR | unix.EPOLLHUP | unix.EPOLLRDHUP | unix.EPOLLET),
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(epollFd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll add fd %d: %w", fd, err)
	}
	return nil
}

// bindToDevice confirms the interface exists before scoping the socket to it.
func bindToDevice(fd int, name string) error {
	if _, err := netlink.LinkByName(name); err != nil {
		return fmt.Errorf("lookup link: %w", err)
	}
	if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, name); err != nil {
		return fmt.Errorf("SO_BINDTODEVICE: %w", err)
	}
	return nil
}
