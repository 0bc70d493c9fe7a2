package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Class is a ticket's priority class. Dispatch walks classes in the
// order of DispatchOrder, so the enum values double as precedence.
type Class int

const (
	ClassVIP Class = iota
	ClassPriority
	ClassGeneral
)

// DispatchOrder is the fixed precedence used by the dispatcher:
// vip first, then priority, then general.
var DispatchOrder = [3]Class{ClassVIP, ClassPriority, ClassGeneral}

// ClassNames lists the accepted class identifiers, in precedence order.
var ClassNames = []string{"vip", "priority", "general"}

func (c Class) String() string {
	switch c {
	case ClassVIP:
		return "vip"
	case ClassPriority:
		return "priority"
	case ClassGeneral:
		return "general"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// ParseClass maps a class identifier to its enum value.
func ParseClass(s string) (Class, bool) {
	switch s {
	case "vip":
		return ClassVIP, true
	case "priority":
		return ClassPriority, true
	case "general":
		return ClassGeneral, true
	}
	return 0, false
}

func (c Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Class) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseClass(s)
	if !ok {
		return fmt.Errorf("unknown ticket class %q", s)
	}
	*c = parsed
	return nil
}

type Ticket struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Class     Class     `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Served    bool      `json:"served"`
}

// Clone returns a value copy of the ticket.
func (t *Ticket) Clone() *Ticket {
	c := *t
	return &c
}

// QueueState holds the three class queues. Each queue is FIFO: tickets
// append at the tail and leave from the head, never reordered.
type QueueState struct {
	VIP      []*Ticket `json:"vip"`
	Priority []*Ticket `json:"priority"`
	General  []*Ticket `json:"general"`
}

func NewQueueState() *QueueState {
	return &QueueState{}
}

func (s *QueueState) queue(c Class) *[]*Ticket {
	switch c {
	case ClassVIP:
		return &s.VIP
	case ClassPriority:
		return &s.Priority
	default:
		return &s.General
	}
}

// Queue returns the tickets of a class, head-first.
func (s *QueueState) Queue(c Class) []*Ticket {
	return *s.queue(c)
}

// Push appends a ticket to the tail of its class queue and returns its
// 1-based position in that queue.
func (s *QueueState) Push(c Class, t *Ticket) int {
	q := s.queue(c)
	*q = append(*q, t)
	return len(*q)
}

// Pop removes and returns the head ticket of a class queue, or nil if
// the queue is empty.
func (s *QueueState) Pop(c Class) *Ticket {
	q := s.queue(c)
	if len(*q) == 0 {
		return nil
	}
	head := (*q)[0]
	*q = (*q)[1:]
	return head
}

// PushHead reinserts a ticket at the head of a class queue.
func (s *QueueState) PushHead(c Class, t *Ticket) {
	q := s.queue(c)
	*q = append([]*Ticket{t}, *q...)
}

// CutTail removes and returns the tail ticket of a class queue, or nil
// if the queue is empty.
func (s *QueueState) CutTail(c Class) *Ticket {
	q := s.queue(c)
	if len(*q) == 0 {
		return nil
	}
	tail := (*q)[len(*q)-1]
	*q = (*q)[:len(*q)-1]
	return tail
}

func (s *QueueState) Len(c Class) int {
	return len(*s.queue(c))
}

func (s *QueueState) Total() int {
	return len(s.VIP) + len(s.Priority) + len(s.General)
}

// Counts reports the current queue lengths per class.
func (s *QueueState) Counts() Counts {
	return Counts{
		VIP:      len(s.VIP),
		Priority: len(s.Priority),
		General:  len(s.General),
		Total:    s.Total(),
	}
}

// MaxID returns the highest ticket id across all queues, 0 when empty.
func (s *QueueState) MaxID() int64 {
	var max int64
	for _, c := range DispatchOrder {
		for _, t := range s.Queue(c) {
			if t.ID > max {
				max = t.ID
			}
		}
	}
	return max
}

type Counts struct {
	VIP      int `json:"vip"`
	Priority int `json:"priority"`
	General  int `json:"general"`
	Total    int `json:"total"`
}

// Upcoming is a head-first preview of each class queue.
type Upcoming struct {
	VIP      []*Ticket `json:"vip"`
	Priority []*Ticket `json:"priority"`
	General  []*Ticket `json:"general"`
}
