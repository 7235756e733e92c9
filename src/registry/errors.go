package registry

import (
	"errors"
	"fmt"
)

// Returned by GetAsset when the id is past the registry's assetCount
var ErrNotFound = errors.New("asset not found")

// A registry read failed before any per-asset processing could happen
type ReadError struct {
	Op    string
	Cause error
}

func (self *ReadError) Error() string {
	return fmt.Sprintf("registry read %s: %v", self.Op, self.Cause)
}

func (self *ReadError) Unwrap() error {
	return self.Cause
}

// A write was reverted, rejected by the signer or timed out waiting for confirmation.
// Indeterminate means we stopped waiting but the write may still have been applied,
// the caller must not assume the side effect is absent.
type WriteRejectedError struct {
	Op            string
	Indeterminate bool
	Cause         error
}

func (self *WriteRejectedError) Error() string {
	if self.Indeterminate {
		return fmt.Sprintf("registry write %s: confirmation timed out, outcome unknown: %v", self.Op, self.Cause)
	}
	return fmt.Sprintf("registry write %s rejected: %v", self.Op, self.Cause)
}

func (self *WriteRejectedError) Unwrap() error {
	return self.Cause
}

// The event stream was dropped by the node
type SubscriptionError struct {
	Cause error
}

func (self *SubscriptionError) Error() string {
	return fmt.Sprintf("registry event subscription dropped: %v", self.Cause)
}

func (self *SubscriptionError) Unwrap() error {
	return self.Cause
}
