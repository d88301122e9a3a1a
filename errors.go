// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Sentinel errors for the two failure classes of the package. All panics
// thrown by this module wrap one of them, so callers recovering with
// exceptions.Try can dispatch on errors.Is.
var (
	// ErrShape indicates inputs whose shapes or indices are inconsistent:
	// mismatched feature widths, out-of-range node ids, malformed candidate
	// masks and the like.
	ErrShape = errors.New("shape error")

	// ErrNumerical indicates a numerically invalid request or result: an
	// eigendecomposition that cannot be performed, NaN appearing in random
	// walk transition weights, etc.
	ErrNumerical = errors.New("numerical error")
)

// PanicShapef panics with an error wrapping ErrShape. It follows the
// exceptions.Panicf convention: the error can be caught with
// exceptions.Try or exceptions.TryCatch.
func PanicShapef(format string, args ...any) {
	panic(errors.Wrapf(ErrShape, format, args...))
}

// PanicNumericalf panics with an error wrapping ErrNumerical.
func PanicNumericalf(format string, args ...any) {
	panic(errors.Wrapf(ErrNumerical, format, args...))
}

// TryShape runs fn and converts a thrown ErrShape or ErrNumerical panic into
// a returned error. Other panics propagate.
func TryShape(fn func()) error {
	err := exceptions.TryCatch[error](fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrShape) || errors.Is(err, ErrNumerical) {
		return err
	}
	panic(err)
}
