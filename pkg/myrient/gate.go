// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"sync"
)

// concurrencyGate bounds how many downloads may run at once, both
// globally and per host. A download must acquire both a global slot and
// a per-host slot before it may proceed.
type concurrencyGate struct {
	global chan struct{}

	mu       sync.Mutex
	perHost  int
	hosts    map[string]chan struct{}
}

func newConcurrencyGate(cfg ConcurrencyConfig) *concurrencyGate {
	return &concurrencyGate{
		global:  make(chan struct{}, cfg.Global),
		perHost: cfg.PerHost,
		hosts:   make(map[string]chan struct{}),
	}
}

func (g *concurrencyGate) hostChan(host string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.hosts[host]
	if !ok {
		ch = make(chan struct{}, g.perHost)
		g.hosts[host] = ch
	}
	return ch
}

// acquire blocks until a global slot and a per-host slot for host are both
// available, or ctx is canceled. The returned release func must be called
// exactly once to free both slots.
func (g *concurrencyGate) acquire(ctx context.Context, host string) (release func(), err error) {
	hostCh := g.hostChan(host)

	select {
	case g.global <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case hostCh <- struct{}{}:
	case <-ctx.Done():
		<-g.global
		return nil, ctx.Err()
	}

	return func() {
		<-hostCh
		<-g.global
	}, nil
}
