package store

import "github.com/k-zaitsev/icqt/jid"

// Store is the user store's Go contract (spec §6): keyed by the XMPP
// bare JID that registered, holding the legacy UIN/password pair and a
// typed Options value. The production store lives outside this module
// (spec §6 names it an external collaborator); Gateway is built only
// against this interface.
type Store interface {
	// Add registers j with uin/password, replacing any prior
	// registration for the same JID.
	Add(j jid.JID, uin, password string) error
	// Del removes j's registration entirely, options included.
	Del(j jid.JID) error
	IsRegistered(j jid.JID) bool

	UIN(j jid.JID) (string, bool)
	Password(j jid.JID) (string, bool)

	GetOptions(j jid.JID) Options
	SetOptions(j jid.JID, opts Options) error
	ClearOptions(j jid.JID) error

	ListUsers() []jid.JID
	// ListUsersByOption returns every registered JID whose Options
	// satisfy pred (spec §6's list_users_by_option(key, value),
	// generalized to a typed predicate since Options is typed rather
	// than a key/value pair).
	ListUsersByOption(pred func(Options) bool) []jid.JID
}
