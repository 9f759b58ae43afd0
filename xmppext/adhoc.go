package xmppext

import "github.com/k-zaitsev/icqt/xmppstream"

// NSCommands is the XEP-0050 ad-hoc commands namespace, grounded on
// original_source's shark/src/xmpp-ext/AdHoc.h's NS_QUERY_ADHOC.
const NSCommands = "http://jabber.org/protocol/commands"

// CommandStatus enumerates AdHoc::Status.
type CommandStatus string

const (
	StatusExecuting CommandStatus = "executing"
	StatusCompleted CommandStatus = "completed"
	StatusCanceled  CommandStatus = "canceled"
)

// ListRegisteredNode is the single admin command this gateway exposes
// (SPEC_FULL §4.19): listing every registered bare JID.
const ListRegisteredNode = "list-registered"

// BuildListRegisteredResult builds the <command/> payload completing the
// list-registered ad-hoc command, embedding a result data form.
func BuildListRegisteredResult(sessionID string, registered []string) *xmppstream.Node {
	cmd := xmppstream.NewNode(NSCommands, "command")
	cmd.SetAttr("node", ListRegisteredNode)
	cmd.SetAttr("sessionid", sessionID)
	cmd.SetAttr("status", string(StatusCompleted))

	form := Form{
		Type:  FormResult,
		Title: "Registered users",
		Fields: []Field{
			{Var: "registered-jids", Type: "list-multi", Label: "Registered bare JIDs", Values: registered},
		},
	}
	cmd.AddChild(form.ToNode())
	return cmd
}
