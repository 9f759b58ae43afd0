package oscar

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessageType mirrors the legacy network's message-type byte (spec
// §4.11, original_source's Message::Type).
type MessageType byte

const (
	MessagePlainText    MessageType = 0x01
	MessageChatRequest  MessageType = 0x02
	MessageFileRequest  MessageType = 0x03
	MessageURL          MessageType = 0x04
	MessageAuthRequest  MessageType = 0x06
	MessageAuthDeny     MessageType = 0x07
	MessageAuthGranted  MessageType = 0x08
	MessageServer       MessageType = 0x09
	MessageYouWereAdded MessageType = 0x0C
	MessageContactList  MessageType = 0x13
)

// Message flag byte values (spec §4.11).
const (
	MessageFlagNormal      byte = 0x01
	MessageFlagAutoMessage byte = 0x03
	MessageFlagMulti       byte = 0x80
)

// Message is one instant message, inbound or outbound, on any channel.
type Message struct {
	Channel   uint16
	Type      MessageType
	Flags     byte
	Cookie    [8]byte
	Sender    string
	Receiver  string
	Text      string
	Timestamp time.Time
}

// MessageEventKind distinguishes the kinds of events MessageManager emits.
type MessageEventKind int

const (
	IncomingMessage MessageEventKind = iota
	OfflineQueueDrained
)

// MessageEvent is fired for every inbound message or queue milestone.
type MessageEvent struct {
	Kind    MessageEventKind
	Message Message
}

// MessageManager sends and receives instant messages over SNAC family
// 0x04 and drives the offline-message queue over the meta-info channel
// (spec §4.11), grounded on
// original_source/icq/managers/icqMessageManager.cpp.
type MessageManager struct {
	w      Writer
	meta   *MetaInfoManager
	ownUIN string

	isOffline func(uin string) bool
	emit      func(MessageEvent)

	log zerolog.Logger
}

// NewMessageManager builds a MessageManager. isOffline reports whether
// a recipient is currently offline, per the user-info cache (C14); it
// decides the outbound channel. meta backs the offline-message queue.
func NewMessageManager(w Writer, meta *MetaInfoManager, ownUIN string, isOffline func(string) bool, emit func(MessageEvent)) *MessageManager {
	m := &MessageManager{
		w:         w,
		meta:      meta,
		ownUIN:    ownUIN,
		isOffline: isOffline,
		emit:      emit,
		log:       log.Logger.With().Str("caller", "MessageManager").Logger(),
	}
	meta.Subscribe(0x41, m.handleOfflineMessageBlock)
	meta.Subscribe(0x42, func([]byte) { m.handleOfflineQueueEnd() })
	return m
}

// newCookie generates an 8-byte ICBM cookie; uniqueness within a
// session is all the wire format requires.
func newCookie() [8]byte {
	var c [8]byte
	rand.Read(c[:])
	return c
}

// RequestOfflineMessages asks the server to deliver any mail queued
// while this UIN was offline (meta-request type 0x3C).
func (m *MessageManager) RequestOfflineMessages() error {
	return m.meta.Request(0x3C, nil)
}

// SendMessage sends msg over SNAC (0x04,0x06). The channel is chosen
// by the receiver's offline status: 1 for an offline receiver, 2
// otherwise. A zero Cookie is replaced with a freshly generated one.
func (m *MessageManager) SendMessage(msg Message) error {
	if msg.Cookie == ([8]byte{}) {
		msg.Cookie = newCookie()
	}
	if msg.Channel == 0 {
		if m.isOffline != nil && m.isOffline(msg.Receiver) {
			msg.Channel = 1
		} else {
			msg.Channel = 2
		}
	}

	buf := NewBuffer()
	buf.AddBytes(msg.Cookie[:])
	buf.AddWord(msg.Channel)
	buf.AddByte(byte(len(msg.Receiver)))
	buf.AddString(msg.Receiver)

	switch msg.Channel {
	case 1:
		buf.AddBytes(NewTLV(0x02, encodeChannel1Body(msg)).Bytes())
	default:
		buf.AddBytes(NewTLV(0x05, encodeChannel2Body(msg)).Bytes())
	}

	return m.w.WriteSnac(Snac{Family: 0x04, Subtype: 0x06, Body: buf.Bytes()})
}

// encodeChannel1Body builds TLV 0x02's value for a plain channel-1
// (offline) send: a capability-array fragment followed by a message
// fragment carrying the ASCII charset pair (spec §4.11).
func encodeChannel1Body(msg Message) []byte {
	buf := NewBuffer()
	buf.AddByte(0x05) // fragment ident: capabilities array
	buf.AddByte(0x01) // fragment version
	buf.AddWord(16)
	buf.AddBytes(CapabilityServerRelay.Bytes())

	text := []byte(msg.Text)
	buf.AddByte(0x01) // fragment ident: message
	buf.AddByte(0x01) // fragment version
	buf.AddWord(uint16(len(text) + 4))
	buf.AddWord(0x0000) // charset: ASCII
	buf.AddWord(0x0000) // charset subset
	buf.AddBytes(text)
	return buf.Bytes()
}

// encodeChannel2Body builds TLV 0x05's value for a channel-2 (direct)
// send: the request/cancel/accept header, the ICQ Server Relay
// capability, and a nested TLV 0x2711 carrying the extended message
// header followed by the UTF-8 text (spec §4.11).
func encodeChannel2Body(msg Message) []byte {
	inner := NewBuffer()
	inner.AddLEWord(0x0001) // protocol version
	inner.AddBytes(CapabilityServerRelay.Bytes())
	inner.AddLEWord(0) // unknown
	inner.AddLEDWord(0x00000003) // capability flags: acks + utf8
	inner.AddByte(0)  // unknown
	inner.AddLEWord(0) // downcounter

	inner.AddLEWord(0) // no extra data fields
	inner.AddByte(byte(msg.Type))
	inner.AddByte(msg.Flags)
	inner.AddLEWord(0) // status code
	inner.AddLEWord(0) // priority code

	text := []byte(msg.Text)
	inner.AddLEWord(uint16(len(text) + 1))
	inner.AddBytes(text)
	inner.AddByte(0) // null terminator

	inner.AddLEDWord(0) // text color
	inner.AddLEDWord(0) // background color
	guidStr := []byte(CapabilityServerRelay.String())
	inner.AddLEDWord(uint32(len(guidStr)))
	inner.AddBytes(guidStr)

	ext := NewBuffer()
	ext.AddLEWord(uint16(inner.Len()))
	ext.AddBytes(inner.Bytes())

	block := NewBuffer()
	block.AddWord(0) // message type: request
	block.AddBytes(msg.Cookie[:])
	block.AddBytes(CapabilityServerRelay.Bytes())
	block.AddBytes(NewTLV(0x2711, ext.Bytes()).Bytes())
	return block.Bytes()
}

// HandleSnac dispatches an incoming (0x04,0x07) message.
func (m *MessageManager) HandleSnac(s Snac) (bool, error) {
	if s.FamilySubtype() != (FamilySubtype{0x04, 0x07}) {
		return false, nil
	}
	buf, err := s.BodyBuffer()
	if err != nil {
		return true, err
	}
	cookie, err := buf.GetBlock(8)
	if err != nil {
		return true, err
	}
	channel, err := buf.GetWord()
	if err != nil {
		return true, err
	}
	uinLen, err := buf.GetByte()
	if err != nil {
		return true, err
	}
	uinBytes, err := buf.GetBlock(int(uinLen))
	if err != nil {
		return true, err
	}
	if _, err := buf.GetWord(); err != nil { // warning level
		return true, err
	}
	fixedCount, err := buf.GetWord()
	if err != nil {
		return true, err
	}
	for i := uint16(0); i < fixedCount; i++ {
		if _, err := DecodeTLV(buf); err != nil {
			return true, err
		}
	}
	chain, err := ChainFromBuffer(buf)
	if err != nil {
		return true, err
	}

	msg := Message{
		Channel:   channel,
		Sender:    string(uinBytes),
		Receiver:  m.ownUIN,
		Timestamp: time.Now(),
	}
	copy(msg.Cookie[:], cookie)

	switch channel {
	case 1:
		decodeChannel1Message(&msg, chain)
	case 2:
		decodeChannel2Message(&msg, chain)
	case 4:
		decodeChannel4Message(&msg, chain)
	default:
		m.log.Debug().Uint16("channel", channel).Msg("unknown message channel")
	}

	m.emit(MessageEvent{Kind: IncomingMessage, Message: msg})
	return true, nil
}

func decodeChannel1Message(msg *Message, chain *Chain) {
	frag := NewBufferFromBytes(chain.GetData(0x02))
	if _, err := frag.GetByte(); err != nil { // ident: capabilities
		return
	}
	if _, err := frag.GetByte(); err != nil { // version
		return
	}
	capsSize, err := frag.GetWord()
	if err != nil {
		return
	}
	frag.SeekForward(int(capsSize))
	if _, err := frag.GetByte(); err != nil { // ident: message
		return
	}
	if _, err := frag.GetByte(); err != nil { // version
		return
	}
	msgSize, err := frag.GetWord()
	if err != nil {
		return
	}
	frag.SeekForward(2) // charset
	frag.SeekForward(2) // charset subset
	if int(msgSize) < 4 {
		return
	}
	text, err := frag.GetBlock(int(msgSize) - 4)
	if err != nil {
		return
	}
	msg.Text = string(text)
	msg.Type = MessagePlainText
}

func decodeChannel2Message(msg *Message, chain *Chain) {
	block := NewBufferFromBytes(chain.GetData(0x05))
	if _, err := block.GetWord(); err != nil { // message type
		return
	}
	if _, err := block.GetBlock(8); err != nil { // repeated cookie
		return
	}
	if _, err := block.GetBlock(16); err != nil { // capability
		return
	}
	msgChain, err := ChainFromBytes(block.ReadAll())
	if err != nil {
		return
	}
	inner := NewBufferFromBytes(msgChain.GetData(0x2711))
	if _, err := inner.GetLEWord(); err != nil { // data length
		return
	}
	if _, err := inner.GetLEWord(); err != nil { // protocol version
		return
	}
	if _, err := inner.GetBlock(16); err != nil { // capability
		return
	}
	inner.SeekForward(2) // unknown
	if _, err := inner.GetLEDWord(); err != nil { // capability flags
		return
	}
	inner.SeekForward(1) // unknown
	inner.SeekForward(2) // downcounter

	extraLen, err := inner.GetLEWord()
	if err != nil {
		return
	}
	inner.SeekForward(int(extraLen))

	typ, err := inner.GetByte()
	if err != nil {
		return
	}
	flags, err := inner.GetByte()
	if err != nil {
		return
	}
	inner.SeekForward(2) // status code
	inner.SeekForward(2) // priority code
	msgLen, err := inner.GetLEWord()
	if err != nil || msgLen == 0 {
		return
	}
	text, err := inner.GetBlock(int(msgLen) - 1)
	if err != nil {
		return
	}
	msg.Text = string(text)
	msg.Type = MessageType(typ)
	msg.Flags = flags
}

func decodeChannel4Message(msg *Message, chain *Chain) {
	data := NewBufferFromBytes(chain.GetData(0x05))
	senderUin, err := data.GetLEDWord()
	if err != nil {
		return
	}
	typ, err := data.GetByte()
	if err != nil {
		return
	}
	flags, err := data.GetByte()
	if err != nil {
		return
	}
	msgLen, err := data.GetLEWord()
	if err != nil || msgLen == 0 {
		return
	}
	text, err := data.GetBlock(int(msgLen) - 1)
	if err != nil {
		return
	}
	msg.Sender = formatUINDecimal(senderUin)
	msg.Type = MessageType(typ)
	msg.Flags = flags
	msg.Text = string(text)
}

// handleOfflineMessageBlock parses a single queued offline message
// delivered as meta-info type 0x41 (spec §4.11).
func (m *MessageManager) handleOfflineMessageBlock(data []byte) {
	buf := NewBufferFromBytes(data)
	senderUin, err := buf.GetLEDWord()
	if err != nil {
		m.log.Warn().Err(err).Msg("truncated offline message: sender")
		return
	}
	year, err := buf.GetLEWord()
	if err != nil {
		return
	}
	month, err := buf.GetByte()
	if err != nil {
		return
	}
	day, err := buf.GetByte()
	if err != nil {
		return
	}
	hour, err := buf.GetByte()
	if err != nil {
		return
	}
	minute, err := buf.GetByte()
	if err != nil {
		return
	}
	typ, err := buf.GetByte()
	if err != nil {
		return
	}
	flags, err := buf.GetByte()
	if err != nil {
		return
	}
	msgLen, err := buf.GetWord()
	if err != nil || msgLen == 0 {
		return
	}
	text, err := buf.GetBlock(int(msgLen) - 1)
	if err != nil {
		return
	}

	msg := Message{
		Type:      MessageType(typ),
		Flags:     flags,
		Sender:    formatUINDecimal(senderUin),
		Receiver:  m.ownUIN,
		Text:      string(text),
		Timestamp: time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), 0, 0, time.UTC),
	}
	m.emit(MessageEvent{Kind: IncomingMessage, Message: msg})
}

func formatUINDecimal(uin uint32) string {
	if uin == 0 {
		return "0"
	}
	var digits [10]byte
	i := len(digits)
	for uin > 0 {
		i--
		digits[i] = byte('0' + uin%10)
		uin /= 10
	}
	return string(digits[i:])
}

// handleOfflineQueueEnd is meta-info type 0x42: the server has
// finished delivering queued mail, so it is told to purge the queue.
func (m *MessageManager) handleOfflineQueueEnd() {
	if err := m.meta.Request(0x3E, nil); err != nil {
		m.log.Warn().Err(err).Msg("failed to request offline queue purge")
		return
	}
	m.emit(MessageEvent{Kind: OfflineQueueDrained})
}
