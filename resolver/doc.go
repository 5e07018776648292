// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package resolver turns host and service names into endpoints for a
// protocol. Lookups are delegated to a Backend: the platform resolver, a
// DNS client, or a TTL cache in front of either. Results come back as a
// forward-only Iter in backend order.
package resolver
