package notify

import (
	"context"
	"sync"
)

// Message is a notification recorded by MemoryNotifier.
type Message struct {
	Recipient string
	Token     string
	Purpose   Purpose
}

// MemoryNotifier keeps sent notifications in memory.
type MemoryNotifier struct {
	mu       sync.Mutex
	messages []Message
	// Err, when set, is returned from every Send.
	Err error
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) Send(_ context.Context, recipient, token string, purpose Purpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.messages = append(n.messages, Message{Recipient: recipient, Token: token, Purpose: purpose})
	return nil
}

// Messages returns a copy of everything sent so far.
func (n *MemoryNotifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}

// Last returns the most recent message for recipient and purpose.
func (n *MemoryNotifier) Last(recipient string, purpose Purpose) (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.messages) - 1; i >= 0; i-- {
		m := n.messages[i]
		if m.Recipient == recipient && m.Purpose == purpose {
			return m, true
		}
	}
	return Message{}, false
}
