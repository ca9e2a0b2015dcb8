// Package server is the TCP front-end for a single-symbol Engine: a
// thin boundary collaborator that turns wire frames into Engine calls
// and Engine outcomes back into wire frames. It has no matching logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lobengine/internal/engine"
	"lobengine/internal/lob"
	"lobengine/internal/timebase"
	"lobengine/internal/wire"
)

const (
	maxRecvSize = 4 * 1024
	// maxSessions bounds how many trading sessions this exchange holds
	// open at once; a connection beyond the cap is refused rather than
	// queued, since a stale queued connection would just time out
	// later anyway.
	maxSessions        = 64
	defaultConnTimeout = time.Second
)

var ErrClientDoesNotExist = errors.New("server: client does not exist")

// clientSession is a connected TCP client, identified by a session id
// rather than by address so a client that reconnects is unambiguous
// even from behind a NAT that reuses addresses.
type clientSession struct {
	id   uuid.UUID
	conn net.Conn
}

type clientMessage struct {
	sessionID uuid.UUID
	message   wire.Message
}

// Server accepts TCP connections, decodes wire frames, and drives an
// Engine on behalf of each client, writing the Engine's outcome back
// as a Report on the same connection.
type Server struct {
	address string
	port    int
	eng     *engine.Engine

	sem    chan struct{}
	cancel context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[uuid.UUID]*clientSession
	connSession  map[net.Conn]uuid.UUID

	messages chan clientMessage
}

// New constructs a Server bound to address:port, driving eng.
func New(address string, port int, eng *engine.Engine) *Server {
	return &Server{
		address:     address,
		port:        port,
		eng:         eng,
		sem:         make(chan struct{}, maxSessions),
		sessions:    make(map[uuid.UUID]*clientSession),
		connSession: make(map[net.Conn]uuid.UUID),
		messages:    make(chan clientMessage, 1),
	}
}

// Shutdown cancels the server's running context.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("server: unable to listen: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("error closing listener")
		}
	}()

	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("addr", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			select {
			case s.sem <- struct{}{}:
				id := s.addSession(conn)
				t.Go(func() error {
					defer func() { <-s.sem }()
					s.handleConnection(t, id, conn)
					return nil
				})
			default:
				log.Warn().Str("addr", conn.RemoteAddr().String()).Msg("rejecting connection: at session capacity")
				_ = conn.Close()
			}
		}
	}
}

func (s *Server) addSession(conn net.Conn) uuid.UUID {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	id := uuid.New()
	s.sessions[id] = &clientSession{id: id, conn: conn}
	s.connSession[conn] = id
	log.Info().Str("session", id.String()).Str("addr", conn.RemoteAddr().String()).Msg("client connected")
	return id
}

func (s *Server) dropSession(id uuid.UUID) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if sess, ok := s.sessions[id]; ok {
		delete(s.connSession, sess.conn)
	}
	delete(s.sessions, id)
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.messages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("session", msg.sessionID.String()).Msg("error handling message")
				s.reportError(msg.sessionID, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch m := msg.message.(type) {
	case wire.NewOrderMessage:
		var res lob.MatchResult
		if m.Type == lob.Market {
			res = s.eng.Market(m.Trader, m.Id, m.Side, m.Qty, m.TIF, lob.TimeNs(timebase.NowNs()))
		} else {
			res = s.eng.Add(m.Trader, m.Id, m.Side, m.Px, m.Qty, m.TIF, lob.TimeNs(timebase.NowNs()))
		}
		s.reportFills(msg.sessionID, m.Side, res)
	case wire.CancelOrderMessage:
		cr := s.eng.Cancel(m.Id)
		if !cr.Ok {
			return fmt.Errorf("cancel: unknown id %d", m.Id)
		}
		s.send(msg.sessionID, wire.Report{
			Kind: wire.CancelReport, Id1: m.Id, Side: cr.Side, Px: cr.Px, Qty: cr.QtyCanceled,
		})
	case wire.ReplaceOrderMessage:
		rr := s.eng.Replace(m.Trader, m.Id, m.NewPx, m.NewQty, m.TIF, lob.TimeNs(timebase.NowNs()))
		if !rr.Ok {
			return fmt.Errorf("replace: rejected for id %d", m.Id)
		}
		s.send(msg.sessionID, wire.Report{Kind: wire.ExecutionReport, Id1: m.Id})
	default:
		return fmt.Errorf("%w: %T", wire.ErrInvalidMessageType, msg.message)
	}
	return nil
}

func (s *Server) reportFills(sessionID uuid.UUID, side lob.Side, res lob.MatchResult) {
	for _, f := range res.Fills {
		s.send(sessionID, wire.Report{
			Kind: wire.ExecutionReport, Id1: f.TakerId, Id2: f.MakerId, Side: side, Px: f.Px, Qty: f.Qty,
		})
	}
}

func (s *Server) reportError(sessionID uuid.UUID, err error) {
	s.send(sessionID, wire.Report{Kind: wire.ErrorReport, Err: err.Error()})
}

func (s *Server) send(sessionID uuid.UUID, report wire.Report) {
	s.sessionsLock.Lock()
	sess, ok := s.sessions[sessionID]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}
	if _, err := sess.conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("session", sessionID.String()).Msg("unable to write report")
		s.dropSession(sessionID)
	}
}

// handleConnection owns one client's connection for its entire
// lifetime: it reads frames until the connection errors out or the
// tomb dies, forwarding each parsed message to the session handler,
// which is the sole goroutine allowed to touch the engine. Running one
// goroutine per live session (capped by sem) keeps reads parallel
// across clients while dispatch into the engine stays serialized.
func (s *Server) handleConnection(t *tomb.Tomb, sessionID uuid.UUID, conn net.Conn) {
	defer func() {
		s.dropSession(sessionID)
		_ = conn.Close()
	}()

	buf := make([]byte, maxRecvSize)
	for {
		select {
		case <-t.Dying():
			return
		default:
		}

		if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
			log.Debug().Err(err).Msg("failed setting connection deadline")
		}

		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}

		message, err := wire.ParseMessage(buf[:n])
		if err != nil {
			log.Error().Err(err).Str("session", sessionID.String()).Msg("error parsing message")
			s.reportError(sessionID, err)
			continue
		}
		s.messages <- clientMessage{sessionID: sessionID, message: message}
	}
}
