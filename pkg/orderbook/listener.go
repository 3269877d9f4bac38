package orderbook

// LevelAction tells what happened to a price level during one mutating call.
type LevelAction string

const (
	LevelNew     LevelAction = "NEW"
	LevelChanged LevelAction = "CHANGE"
	LevelDeleted LevelAction = "DELETE"
)

// LevelChange is the state of a touched level once the call finished.
// Qty and Orders are zero for LevelDeleted.
type LevelChange struct {
	Side   Side
	Price  int64
	Qty    int64
	Orders int
	Action LevelAction
}

// Update carries everything one mutating call changed. Seq increases by one
// for every published update.
type Update struct {
	Seq    uint64
	Trades []Trade
	Levels []LevelChange
}

// Listener receives updates while the book's write lock is held, in exactly
// the order the mutations were serialized. Implementations must not block
// and must not call back into the book.
type Listener interface {
	OnUpdate(u Update)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(u Update)

func (f ListenerFunc) OnUpdate(u Update) { f(u) }

type levelKey struct {
	side  Side
	price int64
}

// pendingUpdate collects changes during one call under the write lock.
type pendingUpdate struct {
	trades  []Trade
	touched []levelKey
	existed map[levelKey]bool
}

func (p *pendingUpdate) touch(side Side, price int64, existed bool) {
	if p.existed == nil {
		p.existed = make(map[levelKey]bool)
	}
	k := levelKey{side: side, price: price}
	if _, ok := p.existed[k]; ok {
		return
	}
	p.existed[k] = existed
	p.touched = append(p.touched, k)
}

func (p *pendingUpdate) reset() {
	p.trades = nil
	p.touched = p.touched[:0]
	clear(p.existed)
}
