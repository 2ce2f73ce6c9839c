// Package simulator serves synthetic headband records over TCP, for
// exercising the capture pipeline without the device.
package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strings"
	"sync"
	"time"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/log"
)

// startCommand is the line a client sends to begin streaming.
const startCommand = "HELLO"

// Signal returns the left and right channel in microvolts for sample n.
type Signal func(n int, rate int) (left, right float64)

// SineSignal is a 10 Hz sine on the left channel and its cosine on the right.
func SineSignal(n, rate int) (float64, float64) {
	t := float64(n) / float64(rate)
	return 50 * math.Sin(2*math.Pi*10*t), 50 * math.Cos(2*math.Pi*10*t)
}

// Server accepts clients and streams records to each one after it says
// HELLO.
type Server struct {
	listen string
	rate   int
	signal Signal
	log    log.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewServer creates a simulator using SineSignal.
func NewServer(cfg config.SimulatorConfig, logger log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 256
	}
	return &Server{
		listen: cfg.Listen,
		rate:   rate,
		signal: SineSignal,
		log:    logger,
	}
}

// Addr returns the bound address once Serve has started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Listen binds the server socket. Serve calls it when needed.
func (s *Server) Listen(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.listen)
	if err != nil {
		return fmt.Errorf("simulator listen: %w", err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Infof("simulator listening on %s", ln.Addr())
	return nil
}

// Serve accepts clients until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(ctx); err != nil {
			return err
		}
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("simulator accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := s.log.WithField("client", conn.RemoteAddr().String())
	logger.Info("client connected")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	for {
		if !sc.Scan() {
			logger.Info("client left before streaming")
			return
		}
		if strings.TrimSpace(sc.Text()) == startCommand {
			break
		}
	}
	logger.Info("hello received, streaming")

	ticker := time.NewTicker(time.Second / time.Duration(s.rate))
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		l, r := s.signal(n, s.rate)
		rec := FormatRecord(Sample{Left: DescaleEEG(l), Right: DescaleEEG(r)})
		if _, err := io.WriteString(conn, rec+"\r\n"); err != nil {
			logger.WithError(err).Info("client disconnected")
			return
		}
	}
}
