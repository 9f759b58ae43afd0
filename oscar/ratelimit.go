package oscar

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/k-zaitsev/icqt/clock"
)

// rateSafetyMargin is added to a class's alert level when deciding
// whether a send may go out immediately, matching the source's
// RATE_SAFETY_TIME constant (icqRateClass.cpp).
const rateSafetyMargin = 50

// RateClass mirrors one SRV_RATE_LIMIT_INFO entry: a token-bucket-like
// "current level" that decays toward WindowSize*trafficRate and is
// consulted before every SNAC send in its membership (spec §3/§4.9).
type RateClass struct {
	ClassID         uint16
	WindowSize      uint32
	ClearLevel      uint32
	AlertLevel      uint32
	LimitLevel      uint32
	DisconnectLevel uint32
	CurrentLevel    uint32
	MaxLevel        uint32

	Members map[FamilySubtype]bool

	lastSend time.Time
	queue    []Snac
	timer    clock.Timer
}

func newRateClass(id uint16) *RateClass {
	return &RateClass{ClassID: id, Members: make(map[FamilySubtype]bool)}
}

// peekLevel computes what CurrentLevel would become if a send happened
// at now, without mutating the class, per the source's calcNewLevel:
// new = ((window-1)*current + elapsedMs) / window. A WindowSize of
// zero can't occur for a real class (spec invariant); guard it anyway
// to avoid a division by zero.
func (c *RateClass) peekLevel(now time.Time) uint32 {
	if c.WindowSize == 0 || c.lastSend.IsZero() {
		return c.CurrentLevel
	}
	elapsed := uint32(now.Sub(c.lastSend).Milliseconds())
	level := ((c.WindowSize-1)*c.CurrentLevel + elapsed) / c.WindowSize
	if c.MaxLevel > 0 && level > c.MaxLevel {
		level = c.MaxLevel
	}
	return level
}

// canSendAt reports whether level clears the class's alert+safety
// threshold while also staying clear of DisconnectLevel.
func (c *RateClass) canSendAt(level uint32) bool {
	threshold := c.AlertLevel + rateSafetyMargin
	return level >= threshold && level >= c.DisconnectLevel
}

// commit records that a send happened at now with the given resulting
// level — the only place CurrentLevel/lastSend actually advance.
func (c *RateClass) commit(now time.Time, level uint32) {
	c.CurrentLevel = level
	c.lastSend = now
}

// timeToNextSend computes how long to wait before the class would
// allow an immediate send, mirroring icqRateClass.cpp's
// timeToNextSend. The source contains a stray `exit(1)` in this
// function when waitTime underflows negative; this implementation
// instead clamps to zero and lets the caller enqueue, never
// terminating the process (spec §4.9/§7).
func (c *RateClass) timeToNextSend() time.Duration {
	maxLevel := c.AlertLevel + rateSafetyMargin
	wait := int64(c.WindowSize)*int64(maxLevel) - int64(c.WindowSize-1)*int64(c.CurrentLevel)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait) * time.Millisecond
}

// RateManager tracks every rate class advertised by the server and
// decides, per outgoing SNAC, whether it may be sent immediately or
// must be queued until its class recovers (spec C9).
type RateManager struct {
	mu      sync.Mutex
	classes map[uint16]*RateClass
	byFam   map[FamilySubtype]*RateClass
	clk     clock.Clock
	send    func(Snac)
	log     zerolog.Logger
}

// NewRateManager builds a RateManager. send is invoked (outside the
// manager's lock) whenever a queued or immediate SNAC is cleared for
// transmission.
func NewRateManager(clk clock.Clock, send func(Snac)) *RateManager {
	return &RateManager{
		classes: make(map[uint16]*RateClass),
		byFam:   make(map[FamilySubtype]*RateClass),
		clk:     clk,
		send:    send,
		log:     log.Logger.With().Str("caller", "oscar<RateManager>").Logger(),
	}
}

// HandleRateInfo parses a SRV_RATE_LIMIT_INFO SNAC (0x01,0x07) and
// populates rate classes plus their family/subtype membership.
func (m *RateManager) HandleRateInfo(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	count, err := buf.GetWord()
	if err != nil {
		return err
	}

	g := NewBufferFromBytes(buf.Bytes()[buf.Pos():])
	g.SeekForward(int(count) * 30)
	fits := true
	for i := 0; i < int(count); i++ {
		n, err := g.GetWord()
		if err != nil {
			fits = false
			break
		}
		g.SeekForward(4 * int(n))
	}
	withTrailer := !fits || !g.AtEnd()

	m.mu.Lock()
	defer m.mu.Unlock()

	classes := make([]*RateClass, 0, count)
	for i := 0; i < int(count); i++ {
		id, err := buf.GetWord()
		if err != nil {
			return err
		}
		windowSize, err := buf.GetDWord()
		if err != nil {
			return err
		}
		clearLevel, err := buf.GetDWord()
		if err != nil {
			return err
		}
		alertLevel, err := buf.GetDWord()
		if err != nil {
			return err
		}
		limitLevel, err := buf.GetDWord()
		if err != nil {
			return err
		}
		disconnectLevel, err := buf.GetDWord()
		if err != nil {
			return err
		}
		currentLevel, err := buf.GetDWord()
		if err != nil {
			return err
		}
		maxLevel, err := buf.GetDWord()
		if err != nil {
			return err
		}
		// Two trailing fields (lastTime, currentState) appear in some
		// protocol versions; withTrailer is set when the member groups
		// do not line up right after plain 30-byte class entries.
		if withTrailer {
			_, _ = buf.GetDWord()
			_, _ = buf.GetByte()
		}

		rc, ok := m.classes[id]
		if !ok {
			rc = newRateClass(id)
			m.classes[id] = rc
		}
		rc.WindowSize = windowSize
		rc.ClearLevel = clearLevel
		rc.AlertLevel = alertLevel
		rc.LimitLevel = limitLevel
		rc.DisconnectLevel = disconnectLevel
		rc.CurrentLevel = currentLevel
		rc.MaxLevel = maxLevel
		rc.lastSend = m.clk.Now()
		classes = append(classes, rc)
	}

	for _, rc := range classes {
		groupCount, err := buf.GetWord()
		if err != nil {
			return err
		}
		for i := 0; i < int(groupCount); i++ {
			fam, err := buf.GetWord()
			if err != nil {
				return err
			}
			sub, err := buf.GetWord()
			if err != nil {
				return err
			}
			fs := FamilySubtype{fam, sub}
			rc.Members[fs] = true
			m.byFam[fs] = rc
		}
	}

	m.log.Debug().Int("classes", len(classes)).Msg("rate classes loaded")
	return nil
}

// Ack builds the SNAC (0x01,0x08) acknowledging every known class id,
// which the server requires before allowing further traffic.
func (m *RateManager) Ack() Snac {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := NewBuffer()
	for id := range m.classes {
		buf.AddWord(id)
	}
	return Snac{Family: 0x01, Subtype: 0x08, Body: buf.Bytes()}
}

// HandleRateWarn updates a class's CurrentLevel from a server-pushed
// SRV_RATE_LIMIT_WARN (0x01,0x0A), which carries a single refreshed
// rate-class snapshot.
func (m *RateManager) HandleRateWarn(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	id, err := buf.GetWord()
	if err != nil {
		return err
	}
	currentLevel, err := buf.GetDWord()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.classes[id]
	if !ok {
		return nil
	}
	rc.CurrentLevel = currentLevel
	rc.lastSend = m.clk.Now()
	return nil
}

// Send decides whether s may go out immediately or must be queued
// against its rate class, invoking the manager's send callback in
// either case (spec §4.9). It never blocks and never terminates the
// process regardless of how depleted a class's level is.
func (m *RateManager) Send(s Snac) {
	m.mu.Lock()
	rc, ok := m.byFam[s.FamilySubtype()]
	if !ok {
		m.mu.Unlock()
		m.send(s)
		return
	}

	now := m.clk.Now()
	level := rc.peekLevel(now)
	if len(rc.queue) == 0 && rc.canSendAt(level) {
		rc.commit(now, level)
		m.mu.Unlock()
		m.send(s)
		return
	}

	rc.queue = append(rc.queue, s)
	m.armDrain(rc)
	m.mu.Unlock()
}

// armDrain schedules a timer to flush rc's queue once its level
// recovers, if one isn't already pending. Caller must hold m.mu.
func (m *RateManager) armDrain(rc *RateClass) {
	if rc.timer != nil {
		return
	}
	wait := rc.timeToNextSend()
	rc.timer = m.clk.AfterFunc(wait, func() { m.drain(rc.ClassID) })
}

// drain flushes every queued SNAC for the class once the wait has
// elapsed, re-arming if the level still isn't high enough to clear the
// whole queue.
func (m *RateManager) drain(classID uint16) {
	m.mu.Lock()
	rc, ok := m.classes[classID]
	if !ok {
		m.mu.Unlock()
		return
	}
	rc.timer = nil

	now := m.clk.Now()
	var toSend []Snac
	for len(rc.queue) > 0 {
		level := rc.peekLevel(now)
		if !rc.canSendAt(level) {
			break
		}
		rc.commit(now, level)
		toSend = append(toSend, rc.queue[0])
		rc.queue = rc.queue[1:]
	}
	if len(rc.queue) > 0 {
		m.armDrain(rc)
	}
	m.mu.Unlock()

	for _, s := range toSend {
		m.send(s)
	}
}

// Class returns the rate class tracking fs, if any, and whether one
// was found — exposed for tests and diagnostics.
func (m *RateManager) Class(fs FamilySubtype) (RateClass, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.byFam[fs]
	if !ok {
		return RateClass{}, false
	}
	return *rc, true
}

// ClassByID returns a snapshot of the class with the given id.
func (m *RateManager) ClassByID(id uint16) (RateClass, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.classes[id]
	if !ok {
		return RateClass{}, false
	}
	return *rc, true
}

// QueueLen reports how many SNACs are currently queued for the class
// tracking fs.
func (m *RateManager) QueueLen(fs FamilySubtype) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.byFam[fs]
	if !ok {
		return 0
	}
	return len(rc.queue)
}
