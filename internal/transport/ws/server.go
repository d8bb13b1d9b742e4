package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"phaseout.no/internal/protocol"
	"phaseout.no/internal/sim/game"
	"phaseout.no/internal/transport/hints"
)

type session struct {
	id    string
	stats bool
	out   chan []byte
}

// Server is the websocket dispatch sink. Clients send ACT messages; every
// session receives a STATE after each dispatch, whoever caused it.
type Server struct {
	engine *game.Engine
	log    *log.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
	dropped  atomic.Uint64

	unsubscribe func()
}

func NewServer(e *game.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		engine:   e,
		log:      logger,
		sessions: map[string]*session{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	s.unsubscribe = e.Subscribe(s.broadcast)
	return s
}

// Close detaches the server from the engine.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Sessions reports how many clients are connected.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Dropped counts STATE messages skipped because a session queue was full.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		defer s.leave(sess.id)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if reply := s.handle(msg); reply != nil {
				select {
				case sess.out <- reply:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	sess := &session{id: uuid.NewString(), stats: hello.Capabilities.Stats, out: make(chan []byte, maxQ)}

	// Register before reading the current state so no dispatch is missed;
	// clients drop a STATE whose seq they have already seen.
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	ok := false
	defer func() {
		if !ok {
			s.leave(sess.id)
		}
	}()

	sc := s.engine.Scenario()
	cur := s.engine.Current()
	kinds := game.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		GameParams: protocol.GameParams{
			StartYear:      sc.Rules.StartYear,
			EndYear:        sc.Rules.EndYear,
			StartingBudget: sc.Rules.StartingBudget,
			Fields:         len(sc.Fields),
			MaxCapacity:    sc.Rules.CapacityMax,
		},
		ActionTypes: names,
		Seq:         cur.Seq,
		Digest:      cur.Digest,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}
	first, err := s.stateMsg(cur, sess.stats)
	if err != nil {
		s.log.Printf("ws: encode state: %v", err)
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, first); err != nil {
		return nil
	}

	ok = true
	s.log.Printf("ws: session %s joined (%s)", sess.id, hello.ClientName)
	return sess
}

func (s *Server) leave(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.log.Printf("ws: session %s left", id)
}

// handle answers one client message. Everything but ACT is an ERROR.
func (s *Server) handle(msg []byte) []byte {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return mustJSON(protocol.NewError(protocol.ErrProtoBadRequest, "bad json"))
	}
	if base.Type != protocol.TypeAct {
		return mustJSON(protocol.NewError(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type))
	}
	var act protocol.ActMsg
	if err := json.Unmarshal(msg, &act); err != nil {
		return mustJSON(protocol.NewError(protocol.ErrProtoBadRequest, "bad ACT"))
	}
	if act.ProtocolVersion != protocol.Version {
		e := protocol.NewError(protocol.ErrProtoVersion, "protocol_version must be "+protocol.Version)
		e.RefID = act.ID
		return mustJSON(e)
	}

	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: act.ID}
	a, prob := hints.Decode(act.Action, s.engine.State())
	if prob != nil {
		ack.Code, ack.Message, ack.Suggestion = prob.Code, prob.Message, prob.Suggestion
		return mustJSON(ack)
	}
	res := s.engine.Apply(a)
	ack.Seq = res.Seq
	if !res.Changed {
		p := hints.Explain(res.Prev, a, s.engine.Scenario().Rules)
		ack.Code, ack.Message = p.Code, p.Message
		return mustJSON(ack)
	}
	ack.Accepted = true
	return mustJSON(ack)
}

// broadcast runs under the engine lock and never blocks.
func (s *Server) broadcast(snap game.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		return
	}
	var plain, withStats []byte
	for _, sess := range s.sessions {
		var err error
		b := plain
		if sess.stats {
			b = withStats
		}
		if b == nil {
			b, err = s.stateMsg(snap, sess.stats)
			if err != nil {
				s.log.Printf("ws: encode state: %v", err)
				return
			}
			if sess.stats {
				withStats = b
			} else {
				plain = b
			}
		}
		select {
		case sess.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

func (s *Server) stateMsg(snap game.Snapshot, stats bool) ([]byte, error) {
	st, err := json.Marshal(snap.State)
	if err != nil {
		return nil, err
	}
	m := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Seq:             snap.Seq,
		Digest:          snap.Digest,
		State:           st,
	}
	if stats {
		if m.Stats, err = json.Marshal(game.StatsOf(snap.State, s.engine.Scenario().Rules)); err != nil {
			return nil, err
		}
	}
	return json.Marshal(m)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(protocol.NewError(protocol.ErrInternal, err.Error()))
	}
	return b
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
