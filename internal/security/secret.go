// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

import "sync"

// Secret holds an encryption key for the lifetime of a queued task and
// zeroes it on Clear.
//
// Go may copy memory at any time and Reveal returns an immutable string, so
// Clear narrows the exposure window rather than guaranteeing erasure.
type Secret struct {
	mu   sync.Mutex
	data []byte
}

// NewSecret copies s into a mutable buffer. An empty s gives an unset Secret.
func NewSecret(s string) *Secret {
	if s == "" {
		return &Secret{}
	}
	data := make([]byte, len(s))
	copy(data, s)
	return &Secret{data: data}
}

// Reveal returns the value, or "" after Clear. Nil-safe.
func (s *Secret) Reveal() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data)
}

// IsSet reports whether a non-empty value is held
func (s *Secret) IsSet() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data) > 0
}

// Clear zeroes and drops the value. Calling it again is a no-op.
func (s *Secret) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data {
		s.data[i] = 0
	}
	s.data = nil
}
