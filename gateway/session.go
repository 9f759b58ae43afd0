package gateway

import (
	"github.com/k-zaitsev/icqt/codec"
	"github.com/k-zaitsev/icqt/oscar"
	"github.com/k-zaitsev/icqt/session"
)

// Sessioner is the subset of *session.Session the gateway drives. It
// exists so tests can substitute a fake ICQ session instead of dialing
// a real OSCAR server, mirroring how the teacher's transaction layer
// is built against a narrow sipgo.Transport-shaped interface rather
// than a concrete struct.
type Sessioner interface {
	Connect()
	Disconnect()
	SetUIN(uin string)
	SetPassword(password string)
	SetCodec(c codec.Codec)
	SetOnlineStatus(show session.Show) error
	ContactAdd(uin string) error
	ContactDel(uin string) error
	AuthGrant(uin string) error
	AuthDeny(uin string) error
	SendMessage(recipient, text string) error
	RequestShortDetails(uin string) error
	ShortDetails(uin string) oscar.ShortUserDetails
	UserInfo(uin string) oscar.UserInfo
	Contacts() []oscar.Contact
	State() session.State
}

// SessionFactory builds a fresh Sessioner wired to emit session events
// through onEvent.
type SessionFactory func(onEvent func(session.Event)) Sessioner

// defaultSessionFactory builds real *session.Session instances backed
// by g's clock.
func defaultSessionFactory(g *Gateway) SessionFactory {
	return func(onEvent func(session.Event)) Sessioner {
		return session.New(g.clk, onEvent)
	}
}

var _ Sessioner = (*session.Session)(nil)
