package market

import (
	"sync"
	"time"
)

// DefaultAlertCapacity はアラート一覧の上限です
const DefaultAlertCapacity = 15

// AlertBuffer は新しい順に並んだ上限付きのアラート一覧です
type AlertBuffer struct {
	items    []Alert
	capacity int
	seq      uint64
	now      func() time.Time
	mu       sync.RWMutex
}

func NewAlertBuffer(capacity int) *AlertBuffer {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertBuffer{
		items:    make([]Alert, 0, capacity+1),
		capacity: capacity,
		now:      time.Now,
	}
}

// Push は受信時刻と単調増加の ID を採番して先頭に追加し、古いものを切り捨てます
func (b *AlertBuffer) Push(alert Alert) Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	alert.ID = b.seq
	alert.ReceivedAt = b.now()

	b.items = append(b.items, Alert{})
	copy(b.items[1:], b.items)
	b.items[0] = alert
	if len(b.items) > b.capacity {
		b.items = b.items[:b.capacity]
	}
	return alert
}

// List は新しい順のコピーを返します
func (b *AlertBuffer) List() []Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Alert, len(b.items))
	copy(out, b.items)
	return out
}

func (b *AlertBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
