package socket

import "github.com/sirupsen/logrus"

// recoverCallback recovers any panic from a socket callback, logging it
// and continuing (spec.md §7: "Callbacks may never throw into the core;
// if they do, the core treats it as the callback having never been
// invoked").
func recoverCallback(name string) {
	if r := recover(); r != nil {
		logrus.WithFields(logrus.Fields{
			"function": "socket.recoverCallback",
			"callback": name,
			"recover":  r,
		}).Error("Recovered from panicking socket callback")
	}
}

// Connecting safely invokes OnConnecting, if set.
func (c Callbacks) Connecting(s Socket) {
	if c.OnConnecting == nil {
		return
	}
	defer recoverCallback("OnConnecting")
	c.OnConnecting(s)
}

// Accept safely invokes OnAccept, if set.
func (c Callbacks) Accept(s Socket) {
	if c.OnAccept == nil {
		return
	}
	defer recoverCallback("OnAccept")
	c.OnAccept(s)
}

// Connect safely invokes OnConnect, if set.
func (c Callbacks) Connect(s Socket) {
	if c.OnConnect == nil {
		return
	}
	defer recoverCallback("OnConnect")
	c.OnConnect(s)
}

// ClosedWith safely invokes OnClose, if set.
func (c Callbacks) ClosedWith(s Socket, err error) {
	if c.OnClose == nil {
		return
	}
	defer recoverCallback("OnClose")
	c.OnClose(s, err)
}
