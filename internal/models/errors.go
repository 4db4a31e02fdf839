package models

import "fmt"

// FetchError reports a failed fetch from one external source. It is
// non-fatal: the source contributes an empty result set for the cycle.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a single malformed record. The record is skipped and
// the cycle continues.
type ParseError struct {
	Platform Platform
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s record: %s", e.Platform, e.Reason)
}

// DeliveryError reports one failed outbound message. It does not block other
// messages and does not roll back the deduplication record.
type DeliveryError struct {
	Language string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s message: %v", e.Language, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
