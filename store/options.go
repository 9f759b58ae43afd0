// Package store defines the user store's Go contract (spec §6: "An
// opaque key-value store" — described as an external collaborator, out
// of scope for this module) plus a typed Options value and an
// in-memory reference implementation used by the gateway's own tests.
//
// Grounded on original_source/src/Options.{h,cpp}'s getOption/setOption/
// hasOption shape, generalized from that file's untyped QHash<QString,
// QString> into the fixed, typed field set spec §6 actually recognises
// (first_login, auto-reconnect, auto-invite, encoding) rather than a
// generic string map, per SPEC_FULL §4.19's "Options persistence
// surface".
package store

import "github.com/k-zaitsev/icqt/codec"

// Options holds the recognised per-user options (spec §6 table).
type Options struct {
	firstLogin    bool
	autoReconnect bool
	autoInvite    bool
	encoding      string
}

// DefaultOptions matches the table's documented defaults: no pending
// first-login roster push, auto-reconnect and auto-invite both off
// until a user opts in, legacy text decoded as windows-1251.
func DefaultOptions() Options {
	return Options{encoding: codec.DefaultName}
}

func (o Options) FirstLogin() bool    { return o.firstLogin }
func (o Options) AutoReconnect() bool { return o.autoReconnect }
func (o Options) AutoInvite() bool    { return o.autoInvite }

// Encoding reports the configured legacy codec name, falling back to
// the documented default if unset.
func (o Options) Encoding() string {
	if o.encoding == "" {
		return codec.DefaultName
	}
	return o.encoding
}

func (o *Options) SetFirstLogin(v bool)    { o.firstLogin = v }
func (o *Options) SetAutoReconnect(v bool) { o.autoReconnect = v }
func (o *Options) SetAutoInvite(v bool)    { o.autoInvite = v }
func (o *Options) SetEncoding(name string) { o.encoding = name }
