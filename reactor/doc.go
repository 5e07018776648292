// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor is the completion engine of hioload-aio. A Reactor owns one
// edge-triggered poller, a registry of live descriptors and a ready queue of
// completion tasks. Operations submitted against a descriptor are attempted
// when the poller reports readiness and complete exactly once, either with
// their result or with a cancellation. Completions run inside Run, RunOne,
// Poll or PollOne on whichever goroutine calls them; handlers for the same
// descriptor never run concurrently.
package reactor
