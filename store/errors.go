// Package store issues authenticated requests against an S3 or
// S3-compatible bucket: list, head, streamed get, multipart put, delete.
// It surfaces failed S3 requests as a Kind-tagged *Error so callers can
// decide whether to retry, resume, or treat the object as absent.
package store

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind classifies why a store operation failed.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindHTTP         Kind = "http"
	KindStallTimeout Kind = "stall_timeout"
	KindMD5Mismatch  Kind = "md5_mismatch"
	KindAuth         Kind = "auth"
	KindConfig       Kind = "config"
	KindIO           Kind = "io"
	KindCrypto       Kind = "crypto"
)

// Error wraps an underlying error with a Kind and, for HTTP failures, the
// status code that produced it.
type Error struct {
	Kind       Kind
	StatusCode int
	Op         string
	Key        string
	Err        error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store: %s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable reports whether the pipeline may retry the operation that
// produced err. 5xx and 400 are retriable; other 4xx (auth, not-found) are
// not.
func Retriable(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Kind {
	case KindStallTimeout, KindMD5Mismatch:
		return true
	case KindHTTP:
		return se.StatusCode >= 500 || se.StatusCode == 400
	default:
		return false
	}
}

// IsNotFound reports whether err denotes a 404 on a required object.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindNotFound
}

func newError(op, key string, err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NoSuchKey" || code == "NotFound" || code == "404" {
			return &Error{Kind: KindNotFound, StatusCode: 404, Op: op, Key: key, Err: err}
		}
		if code == "AccessDenied" || code == "Forbidden" || code == "SignatureDoesNotMatch" {
			return &Error{Kind: KindAuth, StatusCode: 403, Op: op, Key: key, Err: err}
		}
	}
	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		code := httpErr.HTTPStatusCode()
		if code == 404 {
			return &Error{Kind: KindNotFound, StatusCode: code, Op: op, Key: key, Err: err}
		}
		if code == 403 {
			return &Error{Kind: KindAuth, StatusCode: code, Op: op, Key: key, Err: err}
		}
		return &Error{Kind: KindHTTP, StatusCode: code, Op: op, Key: key, Err: err}
	}
	return &Error{Kind: KindIO, Op: op, Key: key, Err: err}
}
