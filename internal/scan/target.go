package scan

import (
	"fmt"
	"math"
	"strings"
)

// TargetOp represents comparison operations for scanning
type TargetOp string

const (
	OpEqual        TargetOp = "eq"
	OpGreater      TargetOp = "gt"
	OpGreaterEqual TargetOp = "ge"
	OpLess         TargetOp = "lt"
	OpLessEqual    TargetOp = "le"
	OpBetween      TargetOp = "between"
	OpOutside      TargetOp = "outside"
)

// ParseTargetOp normalizes an operator name.
func ParseTargetOp(s string) (TargetOp, error) {
	op := TargetOp(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpBetween, OpOutside:
		return op, nil
	default:
		return "", fmt.Errorf("%w: unknown target op %q", ErrInvalidParams, s)
	}
}

// TargetEvaluator handles target condition evaluation with tolerance
type TargetEvaluator struct {
	op        TargetOp
	val1      float64
	val2      float64 // for "between" and "outside"
	tolerance float64
}

// NewTargetEvaluator creates a new target evaluator. Range ops require
// val1 <= val2.
func NewTargetEvaluator(op TargetOp, val1, val2, tolerance float64) (*TargetEvaluator, error) {
	if _, err := ParseTargetOp(string(op)); err != nil {
		return nil, err
	}
	if (op == OpBetween || op == OpOutside) && val2 < val1 {
		return nil, fmt.Errorf("%w: %s needs target_val <= target_val2", ErrInvalidParams, op)
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		return nil, fmt.Errorf("%w: negative tolerance", ErrInvalidParams)
	}
	return &TargetEvaluator{
		op:        op,
		val1:      val1,
		val2:      val2,
		tolerance: tolerance,
	}, nil
}

// Matches checks if a metric matches the target criteria
func (te *TargetEvaluator) Matches(metric float64) bool {
	switch te.op {
	case OpEqual:
		return math.Abs(metric-te.val1) <= te.tolerance
	case OpGreater:
		return metric > te.val1+te.tolerance
	case OpGreaterEqual:
		return metric >= te.val1-te.tolerance
	case OpLess:
		return metric < te.val1-te.tolerance
	case OpLessEqual:
		return metric <= te.val1+te.tolerance
	case OpBetween:
		return metric >= te.val1-te.tolerance && metric <= te.val2+te.tolerance
	case OpOutside:
		return metric < te.val1-te.tolerance || metric > te.val2+te.tolerance
	default:
		return false
	}
}
