// Package pool
// Author: momentics <momentics@gmail.com>
//
// Size-classed byte buffer pooling for I/O paths. Receive and send buffers
// handed to asynchronous operations are long lived and uniformly sized, so
// recycling them keeps steady-state allocation near zero.
package pool
