package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies engine failures
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "not_found"
	CodeInvalidRelation   ErrorCode = "invalid_relation"
	CodeIllegalTransition ErrorCode = "illegal_transition"
	CodeConflict          ErrorCode = "conflict"
)

// Sentinels for errors.Is matching against a code
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRelation   = errors.New("invalid relation")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrConflict          = errors.New("conflict")
)

var codeSentinels = map[ErrorCode]error{
	CodeNotFound:          ErrNotFound,
	CodeInvalidRelation:   ErrInvalidRelation,
	CodeIllegalTransition: ErrIllegalTransition,
	CodeConflict:          ErrConflict,
}

// Rules reported in Error.Rule
const (
	RuleEntityMissing         = "entity_missing"
	RuleContractNotOpen       = "contract_not_open"
	RuleContractNotInitial    = "contract_not_initial"
	RuleContractHasProducts   = "contract_has_products"
	RuleInvoiceNotOpen        = "invoice_not_open"
	RuleInvoiceNotInitial     = "invoice_not_initial"
	RuleInvoiceHasProducts    = "invoice_has_products"
	RuleInstanceNotInitial    = "instance_not_initial"
	RuleInstanceInvoiced      = "instance_invoiced"
	RuleInstanceNotOnContract = "instance_not_on_contract"
	RuleCompanyMismatch       = "company_mismatch"
	RuleAlreadyInvoiced       = "already_invoiced"
	RuleNotOnInvoice          = "not_on_invoice"
	RuleProductInactive       = "product_inactive"
	RuleStatusUnknown         = "status_unknown"
	RuleNotAComment           = "not_a_comment"
	RuleVersionMismatch       = "version_mismatch"
	RuleConcurrentWrite       = "concurrent_write"
)

// Error is a typed engine failure carrying the violated rule
type Error struct {
	Code    ErrorCode
	Op      string
	Rule    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Code))
	}
	if e.Rule != "" {
		fmt.Fprintf(&b, " [%s]", e.Rule)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the code sentinel so callers can use errors.Is(err, ErrNotFound)
func (e *Error) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

// WithOp returns a copy of the error annotated with an operation name
func (e *Error) WithOp(op string) *Error {
	cp := *e
	cp.Op = op
	return &cp
}

func newError(code ErrorCode, rule, format string, args ...interface{}) *Error {
	return &Error{Code: code, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing or soft-deleted entity
func NotFound(format string, args ...interface{}) *Error {
	return newError(CodeNotFound, RuleEntityMissing, format, args...)
}

// InvalidRelation reports a violated cross-entity invariant
func InvalidRelation(rule, format string, args ...interface{}) *Error {
	return newError(CodeInvalidRelation, rule, format, args...)
}

// IllegalTransition reports a lifecycle guard denial
func IllegalTransition(rule, format string, args ...interface{}) *Error {
	return newError(CodeIllegalTransition, rule, format, args...)
}

// Conflict reports a concurrent write detected through the version counter
func Conflict(rule, format string, args ...interface{}) *Error {
	return newError(CodeConflict, rule, format, args...)
}

// CodeOf extracts the error code, or "" for untyped errors
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// RuleOf extracts the violated rule, or "" for untyped errors
func RuleOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
	}
	return ""
}

// IsRetryable reports whether the caller may retry once with a fresh read
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
