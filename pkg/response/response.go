// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package response classifies API response bodies into success payloads and errors.
//
// Successful and failed calls share the {"Response": ...} envelope; only the
// shape of the inner object tells them apart.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Protocol error reported when the body is not a response envelope.
const (
	ProtocolErrorCode    = "REQUEST_ID_NONE"
	ProtocolErrorMessage = "response parsing unsuccessful"
)

// Kind is the outcome of classification.
type Kind int

// Classification outcomes.
const (
	KindSuccess Kind = iota
	KindApplicationError
	KindProtocolError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindApplicationError:
		return "application error"
	case KindProtocolError:
		return "protocol error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the classified response.
//
// Payload is set for KindSuccess, Code and Message for both error kinds,
// RequestID for KindApplicationError.
type Result struct {
	Payload   json.RawMessage
	Code      string
	Message   string
	RequestID string
	Kind      Kind
}

// Err returns nil on success, *APIError or *ProtocolError otherwise.
func (r Result) Err() error {
	switch r.Kind {
	case KindSuccess:
		return nil
	case KindApplicationError:
		return &APIError{
			Code:      r.Code,
			Message:   r.Message,
			RequestID: r.RequestID,
		}
	default:
		return &ProtocolError{
			Code:    r.Code,
			Message: r.Message,
		}
	}
}

// APIError is an error returned by the remote service.
type APIError struct {
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s (request id %s)", e.Code, e.Message, e.RequestID)
}

// ProtocolError is returned when the body is not a well-formed response envelope.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %s: %s", e.Code, e.Message)
}

type envelope struct {
	Response json.RawMessage `json:"Response"`
}

type errorShape struct {
	Error *struct {
		Code    *string `json:"Code"`
		Message *string `json:"Message"`
	} `json:"Error"`
	RequestID *string `json:"RequestId"`
}

func (e *errorShape) complete() bool {
	return e.Error != nil && e.Error.Code != nil && e.Error.Message != nil && e.RequestID != nil
}

// Classify classifies a raw response body.
//
// A body which is not an object with a non-null Response member is a protocol error.
// A Response matching {"Error":{"Code","Message"},"RequestId"} is an application error.
// Anything else is a success carrying the compacted Response text.
func Classify(body []byte) Result {
	var env envelope

	if err := json.Unmarshal(body, &env); err != nil || len(env.Response) == 0 || bytes.Equal(env.Response, []byte("null")) {
		return Result{
			Kind:    KindProtocolError,
			Code:    ProtocolErrorCode,
			Message: ProtocolErrorMessage,
		}
	}

	var shape errorShape

	if err := json.Unmarshal(env.Response, &shape); err == nil && shape.complete() {
		return Result{
			Kind:      KindApplicationError,
			Code:      *shape.Error.Code,
			Message:   *shape.Error.Message,
			RequestID: *shape.RequestID,
		}
	}

	var compact bytes.Buffer

	// Response is known to be valid JSON at this point
	if err := json.Compact(&compact, env.Response); err != nil {
		compact.Reset()
		compact.Write(env.Response)
	}

	return Result{
		Kind:    KindSuccess,
		Payload: compact.Bytes(),
	}
}

// Decode classifies body and unmarshals the success payload into v.
func Decode(body []byte, v any) error {
	result := Classify(body)
	if err := result.Err(); err != nil {
		return err
	}

	if v == nil {
		return nil
	}

	return json.Unmarshal(result.Payload, v)
}
