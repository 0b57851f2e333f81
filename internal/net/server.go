package net

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

	"tyr/internal/common"
	"tyr/internal/engine"
	"tyr/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	id   string
	conn net.Conn
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Server is the thin driver in front of the matching engine: it translates
// wire messages into engine submissions and reports resulting trades back
// to the submitting session. It adds no matching semantics of its own.
type Server struct {
	address            string
	port               int
	book               *engine.Orderbook
	pool               utils.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]ClientSession
	clientSessionsLock sync.Mutex
	clientMessages     chan ClientMessage
}

func New(address string, port int, book *engine.Orderbook) *Server {
	return &Server{
		address:        address,
		port:           port,
		book:           book,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]ClientSession),
		clientMessages: make(chan ClientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool.
	s.pool.Setup(t, s.handleConnection)

	// Start the session handler.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			session := s.addClientSession(conn)
			log.Info().
				Str("session", session.id).
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// sessionHandler drains incoming client messages, dispatches them into the
// engine and reports the outcome back to the submitting session. Messages
// are received from the pool of workers.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case clientMessage := <-s.clientMessages:
			s.dispatch(clientMessage)
		}
	}
}

func (s *Server) dispatch(clientMessage ClientMessage) {
	switch message := clientMessage.message.(type) {
	case *SubmitOrderMessage:
		order := message.Order()
		trades := s.book.AddOrder(order)
		log.Info().
			Uint64("order", order.ID).
			Stringer("side", order.Side).
			Stringer("type", order.Type).
			Int("trades", len(trades)).
			Msg("order submitted")
		s.reportTrades(clientMessage.clientAddress, message.OrderID, trades)

	case *CancelOrderMessage:
		s.book.CancelOrder(message.OrderID)
		log.Info().Uint64("order", message.OrderID).Msg("order cancelled")

	case *ModifyOrderMessage:
		trades := s.book.ModifyOrder(message.Modify())
		log.Info().
			Uint64("order", message.OrderID).
			Int("trades", len(trades)).
			Msg("order modified")
		s.reportTrades(clientMessage.clientAddress, message.OrderID, trades)

	default:
		log.Warn().
			Int("message type", int(clientMessage.message.GetType())).
			Msg("unhandled message")
	}
}

// reportTrades sends one execution report per trade back to the submitting
// session. The engine has no notion of ownership, so only the submitter is
// notified; every trade from a submission involves the submitted order.
func (s *Server) reportTrades(clientAddress string, submitted common.OrderID, trades []common.Trade) {
	for _, trade := range trades {
		report := executionReport(trade, submitted)
		if err := s.report(clientAddress, report); err != nil {
			log.Error().
				Err(err).
				Str("address", clientAddress).
				Uint64("order", submitted).
				Msg("unable to report trade")
			return
		}
	}
}

// handleConnection is a short-lived worker method which reads the next message off the
// connection, parses and passes it forward to sessionHandler to handle it. If the connection
// dies, the client session is cleaned up. This method does not lock any client session
// directly and gives up early if the connection is terminated. Therefore this method is
// thread safe on map accesses.
// Note, any error returned from here is fatal.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	// Set max read timeout.
	err := conn.SetDeadline(time.Now().Add(defaultConnTimeout))
	if err != nil {
		log.Error().
			Str("address", conn.RemoteAddr().String()).
			Err(err).
			Msg("failed setting deadline for connection")
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			if isTimeout(err) {
				// Nothing arrived within the deadline; requeue and keep
				// the session alive.
				s.pool.AddTask(conn)
				return nil
			}
			// If a read from a client fails, it is likely that the client
			// has exited. Clean up the client session.
			s.dropClientSession(conn)
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", conn.RemoteAddr().String()).
				Msg("error parsing message")
			s.report(conn.RemoteAddr().String(), errorReport(err))
			s.pool.AddTask(conn)
			return nil
		}

		// Pass over to the message handling buffer and exit this worker.
		s.clientMessages <- ClientMessage{
			message:       message,
			clientAddress: conn.RemoteAddr().String(),
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// report writes a single report frame to the addressed session.
func (s *Server) report(clientAddress string, report Report) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(report.Serialize()); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// addClientSession is an atomic map add
func (s *Server) addClientSession(conn net.Conn) ClientSession {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	session := ClientSession{
		id:   uuid.NewString(),
		conn: conn,
	}
	s.clientSessions[conn.RemoteAddr().String()] = session
	return session
}

// dropClientSession is an atomic map remove that also closes the conn.
func (s *Server) dropClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	delete(s.clientSessions, conn.RemoteAddr().String())
	if err := conn.Close(); err != nil {
		log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("error closing connection")
	}
}
