package topk

// SelectStrided fills l with the smallest of rows values read from data at
// offset, offset+stride, offset+2*stride, ... The row number is the index
// recorded for each value. l is reset first.
func SelectStrided(l *List, data []float32, offset, stride, rows int) {
	l.Reset()
	pos := offset
	for r := 0; r < rows; r++ {
		l.Push(data[pos], int32(r))
		pos += stride
	}
}

// WriteStrided writes the list into rank-major output columns: rank i goes
// to dist[offset+i*stride] and ind[offset+i*stride].
func WriteStrided(l *List, dist []float32, ind []int32, offset, stride int) {
	pos := offset
	for _, n := range l.items {
		dist[pos] = n.Distance
		ind[pos] = n.Index
		pos += stride
	}
}
