package sim

import "sync"

const (
	orderBufferOccupancyMetricKey = "sim_order_buffer_occupancy"
	orderBufferOverflowMetricKey  = "sim_order_buffer_overflow_total"
)

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// OrderBuffer stages orders in a fixed-size ring between network goroutines
// and the tick goroutine. It is safe for concurrent producers and a single
// consumer.
type OrderBuffer struct {
	mu      sync.Mutex
	data    []Order
	head    int
	tail    int
	count   int
	metrics telemetryMetrics
}

// NewOrderBuffer constructs a ring buffer with the provided capacity.
func NewOrderBuffer(capacity int, metrics telemetryMetrics) *OrderBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &OrderBuffer{
		data:    make([]Order, capacity),
		metrics: metrics,
	}
}

func (b *OrderBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages an order, returning false if the buffer is full.
func (b *OrderBuffer) Push(order Order) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		if b.metrics != nil {
			b.metrics.Add(orderBufferOverflowMetricKey, 1)
		}
		return false
	}
	b.data[b.tail] = order
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	b.storeOccupancyLocked()
	return true
}

// Drain returns the staged orders oldest first and empties the buffer.
func (b *OrderBuffer) Drain() []Order {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	orders := make([]Order, b.count)
	for i := range orders {
		orders[i] = b.data[(b.head+i)%len(b.data)]
	}
	clear(b.data)
	b.head, b.tail, b.count = 0, 0, 0
	b.storeOccupancyLocked()
	return orders
}

func (b *OrderBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *OrderBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(orderBufferOccupancyMetricKey, uint64(b.count))
}
