package xmppext

import (
	"time"

	"github.com/k-zaitsev/icqt/xmppstream"
)

// NSDelay is the legacy delayed-delivery namespace (spec §6), used to
// stamp offline messages with their original timestamp. Grounded on
// icqMessageManager.cpp's offline-message timestamp parsing
// (SPEC_FULL §4.19's "jabber:x:delay on offline messages" supplement).
const NSDelay = "jabber:x:delay"

// delayStampFormat is spec §6's literal stamp format.
const delayStampFormat = "20060102T15:04:05"

// BuildDelay builds the <x xmlns='jabber:x:delay' stamp='...' from='...'/>
// element for a message originally sent at ts.
func BuildDelay(ts time.Time, from string) *xmppstream.Node {
	n := xmppstream.NewNode(NSDelay, "x")
	n.SetAttr("stamp", ts.UTC().Format(delayStampFormat))
	if from != "" {
		n.SetAttr("from", from)
	}
	return n
}
