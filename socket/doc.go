// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package socket provides the protocol specific I/O objects built on the
// reactor: TCPSocket, TCPListener, UDPSocket and ICMPSocket. Every object
// owns one OS handle, registered with its reactor while open. Blocking
// variants take a context; asynchronous variants return a
// *reactor.Operation and deliver exactly one completion. Closing a socket
// cancels its pending operations before the handle is released.
package socket
