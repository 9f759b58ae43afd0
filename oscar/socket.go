package oscar

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/k-zaitsev/icqt/clock"
)

// Conn is the minimal byte-stream contract a Socket drives. Any
// transport.Conn (or a plain net.Conn) satisfies it.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Socket is the OSCAR read/write engine (spec §4.7): it turns a raw
// byte stream into a sequence of FLAP/SNAC events, drains the
// well-known housekeeping SNACs and error SNACs before they reach the
// caller, and routes every outbound SNAC through the rate manager.
type Socket struct {
	conn Conn
	log  zerolog.Logger

	seq   SeqCounter
	reqID ReqIDCounter
	rate  *RateManager

	mu    sync.Mutex
	accum []byte

	// OnFlap fires for every decoded FLAP frame, before SNAC parsing.
	OnFlap func(Flap)
	// OnSnac fires for every Data-channel SNAC that was not drained or
	// routed to OnSnacError.
	OnSnac func(Snac)
	// OnSnacError fires for SNACs with subtype 0x01 (spec §4.4).
	OnSnacError func(SnacError)
	// OnReadError fires once the read loop ends, nil if io.EOF on a
	// clean close.
	OnReadError func(error)
}

// NewSocket wraps conn with FLAP/SNAC framing and a rate manager
// driven by clk.
func NewSocket(conn Conn, clk clock.Clock) *Socket {
	s := &Socket{
		conn: conn,
		log:  log.Logger.With().Str("caller", "Socket").Logger(),
	}
	s.rate = NewRateManager(clk, s.transmit)
	return s
}

// RateManager exposes the socket's rate manager so the login machine
// can feed it SRV_RATE_LIMIT_INFO/WARN SNACs.
func (s *Socket) RateManager() *RateManager {
	return s.rate
}

// WriteFlap stamps the next outbound sequence number and writes a
// FLAP frame directly, bypassing the rate manager (only Data-channel
// SNACs are rate-limited).
func (s *Socket) WriteFlap(channel byte, payload []byte) error {
	f := Flap{Channel: channel, Sequence: s.seq.Next(), Payload: payload}
	_, err := s.conn.Write(f.Encode())
	if err != nil {
		s.log.Warn().Err(err).Msg("flap write failed")
	}
	return err
}

// WriteSnac submits s to the rate manager; it is written immediately
// or queued depending on the owning class's current level.
func (s *Socket) WriteSnac(snac Snac) error {
	s.rate.Send(snac)
	return nil
}

// transmit is the rate manager's send callback: it assigns the next
// request id and writes the SNAC as a Data-channel FLAP frame (spec
// §4.7, "assign next request-id and write").
func (s *Socket) transmit(snac Snac) {
	snac.RequestID = s.reqID.Next()
	if err := s.WriteFlap(ChannelData, snac.Encode()); err != nil {
		s.log.Warn().Err(err).Uint16("family", snac.Family).Uint16("subtype", snac.Subtype).Msg("snac write failed")
	}
}

// Run drives the read loop until the connection closes or a fatal
// read error occurs. It blocks; callers run it in its own goroutine.
func (s *Socket) Run() {
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.feed(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			if s.OnReadError != nil {
				s.OnReadError(err)
			}
			return
		}
	}
}

// feed appends newly read bytes and decodes every complete FLAP frame
// now available, dispatching each in turn.
func (s *Socket) feed(p []byte) {
	s.mu.Lock()
	s.accum = append(s.accum, p...)
	data := s.accum
	s.mu.Unlock()

	cursor := NewBufferFromBytes(data)
	consumed := 0
	for {
		frame, err := TryDecodeFlap(cursor)
		if err == ErrNeedMore {
			break
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("malformed flap stream, closing")
			if s.OnReadError != nil {
				s.OnReadError(err)
			}
			_ = s.conn.Close()
			return
		}
		consumed = cursor.Pos()
		s.dispatchFlap(frame)
	}

	s.mu.Lock()
	s.accum = append([]byte(nil), s.accum[consumed:]...)
	s.mu.Unlock()
}

// dispatchFlap emits OnFlap, and for Data-channel frames also decodes
// and dispatches the SNAC inside (spec §4.7).
func (s *Socket) dispatchFlap(f Flap) {
	if s.OnFlap != nil {
		s.OnFlap(f)
	}
	if f.Channel != ChannelData {
		return
	}
	snac, err := DecodeSnac(f.Payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("malformed snac payload")
		return
	}
	s.dispatchSnac(snac)
}

// dispatchSnac applies the housekeeping drains and error handling from
// §4.4 before handing the SNAC to OnSnac.
func (s *Socket) dispatchSnac(snac Snac) {
	if snac.IsDrained() {
		s.log.Debug().Uint16("family", snac.Family).Uint16("subtype", snac.Subtype).Msg("draining housekeeping snac")
		return
	}
	if snac.IsError() {
		se, err := ParseSnacError(snac)
		if err != nil {
			s.log.Warn().Err(err).Msg("malformed error snac")
			return
		}
		if s.OnSnacError != nil {
			s.OnSnacError(se)
		}
		return
	}
	if s.OnSnac != nil {
		s.OnSnac(snac)
	}
}

// Close releases the underlying connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}
