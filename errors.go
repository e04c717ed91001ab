package knn

import (
	"errors"
	"fmt"

	"github.com/hupe1980/knn/internal/device"
	"github.com/hupe1980/knn/internal/reference"
	"github.com/hupe1980/knn/model"
)

var (
	// ErrInvalidK is returned when k is outside [1, reference width].
	ErrInvalidK = errors.New("k out of range")

	// ErrInvalidWidth is returned when a point set has no points.
	ErrInvalidWidth = model.ErrInvalidWidth

	// ErrInvalidDimension is returned when a point set has no dimensions.
	ErrInvalidDimension = model.ErrInvalidDimension

	// ErrTooManyPoints is returned when the reference set has more points
	// than an int32 index can address.
	ErrTooManyPoints = errors.New("too many reference points for int32 indices")

	// ErrBufferTooSmall is returned when a caller-provided output buffer
	// cannot hold k*queries values.
	ErrBufferTooSmall = errors.New("output buffer too small")

	// ErrAllocation is returned when working memory cannot be obtained.
	// It wraps resource.ErrMemoryLimitExceeded when the budget is the cause.
	ErrAllocation = errors.New("allocation failed")
)

// ErrKOutOfRange carries the rejected k and the largest valid one.
type ErrKOutOfRange struct {
	K   int
	Max int
}

func (e *ErrKOutOfRange) Error() string {
	return fmt.Sprintf("k out of range: %d not in [1, %d]", e.K, e.Max)
}

func (e *ErrKOutOfRange) Unwrap() error { return ErrInvalidK }

// ErrDimensionMismatch indicates that the query and reference sets have
// different dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidPointSet names the offending point set.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidPointSet struct {
	Name  string
	cause error
}

func (e *ErrInvalidPointSet) Error() string {
	return fmt.Sprintf("invalid %s point set: %v", e.Name, e.cause)
}

func (e *ErrInvalidPointSet) Unwrap() error { return e.cause }

// ErrBufferSize carries the required and actual length of an output buffer.
type ErrBufferSize struct {
	Name string
	Need int
	Got  int
}

func (e *ErrBufferSize) Error() string {
	return fmt.Sprintf("%s buffer too small: need %d, got %d", e.Name, e.Need, e.Got)
}

func (e *ErrBufferSize) Unwrap() error { return ErrBufferTooSmall }

// translateError maps internal errors onto the public taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, device.ErrAllocation) || errors.Is(err, reference.ErrAllocation) {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	return err
}
