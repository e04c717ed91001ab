// Package model defines the data types shared by the search engines.
//
// # Point Sets
//
// A PointSet stores Width points of Dim dimensions dimension-major: the
// value of dimension d of point p lives at Data[d*Width+p]. This is the
// layout both engines consume directly.
//
//	ps := model.FromRows([][]float32{{0, 0}, {1, 0}, {0, 1}})
//	ps.At(1, 2) // 1
//
// # Results
//
// A Result holds K neighbours for each of Queries query points, laid out
// row-major by neighbour rank: rank i of query q lives at i*Queries+q.
package model
