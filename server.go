package legacyipc

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Server owns the loopback listener and serves connections one at a time.
type Server struct {
	listener   *net.TCPListener
	frames     *FrameCodec
	dispatcher *Dispatcher
	logger     Logger
	opts       options

	mu        sync.Mutex
	shutdown  bool
	done      chan struct{}
	closeOnce sync.Once
}

// New binds addr and returns a Server that rates requests with calculator.
// Returns an error if the address cannot be bound.
func New(addr *net.TCPAddr, calculator Calculator, opt ...Option) (*Server, error) {
	if calculator == nil {
		return nil, ErrNoCalculator
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}

	return &Server{
		listener:   listener,
		frames:     NewFrameCodec(opts.byteOrder, opts.maxFrameSize),
		dispatcher: NewDispatcher(calculator, opts.logger),
		logger:     opts.logger,
		opts:       opts,
		done:       make(chan struct{}),
	}, nil
}

// Serve accepts connections and fully processes each one before accepting
// the next. Failures of a single connection are logged and never stop the
// loop; a failing Accept is retried at a limited rate. Serve only returns
// once ctx is canceled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("server started", "addr", s.listener.Addr(),
		"byte_order", s.frames.ByteOrder(), "max_frame_size", s.opts.maxFrameSize)

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
			return
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept
		_ = s.listener.SetDeadline(time.Now())
	}()

	limiter := rate.NewLimiter(s.opts.acceptLimit, s.opts.acceptBurst)

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if s.isShutdown() {
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			s.logger.Error("accept error", "error", err)
			// Wait fails only once ctx is done; the next Accept then sees the shutdown.
			_ = limiter.Wait(ctx)
			continue
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		c := newConn(conn, s.frames, s.dispatcher, s.opts)
		if err = c.Process(ctx); err != nil {
			s.logger.Debug("connection closed", "remote_addr", conn.RemoteAddr(),
				"state", c.Reached(), "error", err)
		} else {
			s.logger.Debug("connection closed", "remote_addr", conn.RemoteAddr(), "state", c.Reached())
		}
	}
}

// Close stops the server by closing the underlying listener.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}
