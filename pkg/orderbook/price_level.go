package orderbook

// priceLevel is the FIFO queue of orders resting at one price on one side.
// Orders are linked intrusively so unlinking from the middle is O(1).
type priceLevel struct {
	price    int64
	side     Side
	head     *Order
	tail     *Order
	totalQty int64
	count    int
}

func newPriceLevel(price int64, side Side) *priceLevel {
	return &priceLevel{price: price, side: side}
}

func (l *priceLevel) pushBack(o *Order) {
	o.level = l
	o.next = nil
	o.prev = l.tail
	if l.tail == nil {
		l.head = o
	} else {
		l.tail.next = o
	}
	l.tail = o
	l.totalQty += o.Qty
	l.count++
}

func (l *priceLevel) front() *Order {
	return l.head
}

func (l *priceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	l.totalQty -= o.Qty
	l.count--
	o.level, o.prev, o.next = nil, nil, nil
}

// reduce lowers the cached level quantity after a resting order was filled
// or amended down in place.
func (l *priceLevel) reduce(qty int64) {
	l.totalQty -= qty
}

func (l *priceLevel) empty() bool {
	return l.head == nil
}

// each walks the queue oldest first until fn returns false.
func (l *priceLevel) each(fn func(o *Order) bool) {
	for o := l.head; o != nil; o = o.next {
		if !fn(o) {
			return
		}
	}
}
