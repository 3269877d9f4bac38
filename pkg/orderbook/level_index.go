package orderbook

import "github.com/tidwall/btree"

const levelIndexDegree = 32

// levelIndex keeps one side's price levels ordered by price. Best price is
// the max key for bids and the min key for asks; lookups cost O(log levels)
// regardless of how many orders rest at each level.
type levelIndex struct {
	side   Side
	levels *btree.Map[int64, *priceLevel]
}

func newLevelIndex(side Side) *levelIndex {
	return &levelIndex{
		side:   side,
		levels: btree.NewMap[int64, *priceLevel](levelIndexDegree),
	}
}

// add appends o to the back of its price's queue, creating the level if
// needed. It reports whether the level is new.
func (x *levelIndex) add(o *Order) (*priceLevel, bool) {
	lvl, ok := x.levels.Get(o.Price)
	if !ok {
		lvl = newPriceLevel(o.Price, x.side)
		x.levels.Set(o.Price, lvl)
	}
	lvl.pushBack(o)
	return lvl, !ok
}

// removeFront pops the oldest order at price, or nil if the level is absent.
func (x *levelIndex) removeFront(price int64) *Order {
	lvl, ok := x.levels.Get(price)
	if !ok {
		return nil
	}
	o := lvl.front()
	if o == nil {
		violation("%s level %d indexed with no orders", x.side, price)
	}
	x.remove(price, o)
	return o
}

// remove unlinks o from the level at price and destroys the level when it
// becomes empty. It reports whether the level was destroyed.
func (x *levelIndex) remove(price int64, o *Order) bool {
	lvl, ok := x.levels.Get(price)
	if !ok || o.level != lvl {
		violation("order %d not queued at %s level %d", o.ID, x.side, price)
	}
	lvl.unlink(o)
	if lvl.empty() {
		x.levels.Delete(price)
		return true
	}
	return false
}

func (x *levelIndex) level(price int64) (*priceLevel, bool) {
	return x.levels.Get(price)
}

// best returns the most aggressive level: highest bid or lowest ask.
func (x *levelIndex) best() (*priceLevel, bool) {
	var (
		lvl *priceLevel
		ok  bool
	)
	if x.side == BUY {
		_, lvl, ok = x.levels.Max()
	} else {
		_, lvl, ok = x.levels.Min()
	}
	if ok && lvl.empty() {
		violation("%s best level %d indexed with no orders", x.side, lvl.price)
	}
	return lvl, ok
}

func (x *levelIndex) bestPrice() (int64, bool) {
	lvl, ok := x.best()
	if !ok {
		return 0, false
	}
	return lvl.price, true
}

// walk visits levels from the best price outwards until fn returns false.
func (x *levelIndex) walk(fn func(lvl *priceLevel) bool) {
	iter := func(_ int64, lvl *priceLevel) bool { return fn(lvl) }
	if x.side == BUY {
		x.levels.Reverse(iter)
		return
	}
	x.levels.Scan(iter)
}

func (x *levelIndex) len() int {
	return x.levels.Len()
}

func (x *levelIndex) empty() bool {
	return x.levels.Len() == 0
}
