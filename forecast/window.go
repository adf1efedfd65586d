package forecast

// WindowSize is the number of trailing values a Window keeps
const WindowSize = 3

// Window is a fixed capacity queue of the most recent series values. It is a
// value type; Push returns the next window and leaves the receiver untouched.
type Window struct {
	vals [WindowSize]float64
	n    int
}

// NewWindow keeps the last WindowSize entries of values
func NewWindow(values []float64) Window {
	var w Window
	start := max(0, len(values)-WindowSize)
	for _, v := range values[start:] {
		w = w.Push(v)
	}
	return w
}

// Push appends v, evicting the oldest entry once the window is full
func (w Window) Push(v float64) Window {
	if w.n < WindowSize {
		w.vals[w.n] = v
		w.n++
		return w
	}
	copy(w.vals[:], w.vals[1:])
	w.vals[WindowSize-1] = v
	return w
}

func (w Window) Len() int {
	return w.n
}

// Lag returns the k-th most recent entry, k starting at 1. When the window holds
// fewer than k entries the oldest available lag is repeated, and an empty window
// yields 0.
func (w Window) Lag(k int) float64 {
	if w.n == 0 || k < 1 {
		return 0
	}
	if k > w.n {
		k = w.n
	}
	return w.vals[w.n-k]
}

// Mean returns the mean of the entries, 0 when empty
func (w Window) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.vals[:w.n] {
		sum += v
	}
	return sum / float64(w.n)
}

// Values returns the entries oldest first
func (w Window) Values() []float64 {
	out := make([]float64, w.n)
	copy(out, w.vals[:w.n])
	return out
}

// Features builds the model input vector for periodIndex:
// period index, lag1, lag2 and the window mean.
func (w Window) Features(periodIndex int) []float64 {
	return []float64{float64(periodIndex), w.Lag(1), w.Lag(2), w.Mean()}
}
