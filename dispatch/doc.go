// Package dispatch routes asynchronous transport events to sessions.
//
// Transport stacks report connection loss and secure-channel renewal
// through callbacks that know only which client raised them. A Dispatcher
// maps client handles to sessions so the callback reaches its owner
// without any process-wide state:
//
//	d := dispatch.New()
//	h := d.Register(session)
//	d.Attach(h, transport)
//	defer d.Unregister(h)
package dispatch
