/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bankcore

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/bankcore/model"
)

type Policy string

const (
	PolicyFIFO       Policy = "FIFO"
	PolicyPriority   Policy = "PRIORITY"
	PolicyRoundRobin Policy = "ROUND_ROBIN"
)

// ParsePolicy accepts any casing of a known policy name.
func ParsePolicy(name string) (Policy, bool) {
	p := Policy(strings.ToUpper(strings.TrimSpace(name)))
	switch p {
	case PolicyFIFO, PolicyPriority, PolicyRoundRobin:
		return p, true
	}
	return "", false
}

// QueueSource lists the entries currently in the QUEUED state.
type QueueSource interface {
	QueuedEntries(ctx context.Context) ([]model.QueueEntry, error)
}

// Scheduler picks the next queued entry under the active policy. It never
// changes entry state; claiming is done by the caller.
type Scheduler struct {
	source QueueSource

	mu     sync.Mutex
	policy Policy
	// Round-robin bookkeeping: a logical clock and the tick at which each
	// account was last selected. Accounts never selected read as zero.
	tick           int64
	lastDispatched map[string]int64
}

func NewScheduler(source QueueSource, policy Policy) *Scheduler {
	if _, ok := ParsePolicy(string(policy)); !ok {
		policy = PolicyFIFO
	}
	return &Scheduler{
		source:         source,
		policy:         policy,
		lastDispatched: make(map[string]int64),
	}
}

// SetPolicy switches the policy used by future selections. An unknown name
// leaves the current policy in place and returns false.
func (s *Scheduler) SetPolicy(name string) bool {
	p, ok := ParsePolicy(name)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	logrus.Infof("scheduling algorithm set to %s", p)
	return true
}

func (s *Scheduler) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// NextReady returns the entry the active policy would run next, or nil when
// nothing is queued.
func (s *Scheduler) NextReady(ctx context.Context) (*model.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.source.QueuedEntries(ctx)
	if err != nil {
		return nil, storageError("failed to list queued entries", err)
	}
	var ready []model.QueueEntry
	for _, e := range entries {
		if e.Status == model.QueueQueued {
			ready = append(ready, e)
		}
	}
	if len(ready) == 0 {
		return nil, nil
	}

	var next model.QueueEntry
	switch s.policy {
	case PolicyPriority:
		next = pickPriority(ready)
	case PolicyRoundRobin:
		next = s.pickRoundRobin(ready)
	default:
		next = pickFIFO(ready)
	}
	return &next, nil
}

func pickFIFO(entries []model.QueueEntry) model.QueueEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Before(best) {
			best = e
		}
	}
	return best
}

func pickPriority(entries []model.QueueEntry) model.QueueEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Priority > best.Priority || (e.Priority == best.Priority && e.Before(best)) {
			best = e
		}
	}
	return best
}

// pickRoundRobin selects the least recently dispatched account with queued
// work and returns its oldest entry. Equally stale accounts are ordered by
// their oldest entry. Must be called with s.mu held.
func (s *Scheduler) pickRoundRobin(entries []model.QueueEntry) model.QueueEntry {
	heads := make(map[string]model.QueueEntry)
	for _, e := range entries {
		if head, ok := heads[e.AccountID]; !ok || e.Before(head) {
			heads[e.AccountID] = e
		}
	}

	var (
		chosen model.QueueEntry
		found  bool
	)
	for account, head := range heads {
		if !found {
			chosen, found = head, true
			continue
		}
		mark, best := s.lastDispatched[account], s.lastDispatched[chosen.AccountID]
		if mark < best || (mark == best && head.Before(chosen)) {
			chosen = head
		}
	}

	s.tick++
	s.lastDispatched[chosen.AccountID] = s.tick
	return chosen
}
