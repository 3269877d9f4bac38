package orderbook

// orderRegistry owns every live order keyed by id. Ids come from a counter
// that never goes backwards, so a retired id is never handed out again.
type orderRegistry struct {
	orders map[uint64]*Order
	lastID uint64
}

func newOrderRegistry() *orderRegistry {
	return &orderRegistry{
		orders: make(map[uint64]*Order),
	}
}

func (r *orderRegistry) insert(o *Order) uint64 {
	r.lastID++
	o.ID = r.lastID
	r.orders[o.ID] = o
	return o.ID
}

func (r *orderRegistry) remove(id uint64) bool {
	if _, ok := r.orders[id]; !ok {
		return false
	}
	delete(r.orders, id)
	return true
}

func (r *orderRegistry) get(id uint64) (*Order, bool) {
	o, ok := r.orders[id]
	return o, ok
}

func (r *orderRegistry) len() int {
	return len(r.orders)
}
